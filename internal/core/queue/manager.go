package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"grocery-companion/internal/infrastructure/config"
	"grocery-companion/internal/metrics"
	"grocery-companion/internal/pkg/common"

	"go.uber.org/zap"
)

// Job 隊列中執行的工作
type Job func(ctx context.Context) (interface{}, error)

// Request 隊列請求
type Request struct {
	Context context.Context
	Job     Job
	Result  chan Result
}

// Result 處理結果
type Result struct {
	Value interface{}
	Error error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 隊列管理器，固定數量的 worker 消費有界隊列
type Manager struct {
	config    config.QueueConfig
	queue     chan *Request
	done      chan struct{}
	processed int64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager 創建新的隊列管理器並啟動 worker
func NewManager(cfg config.QueueConfig) *Manager {
	m := &Manager{
		config: cfg,
		queue:  make(chan *Request, cfg.MaxSize),
		done:   make(chan struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	common.LogInfo("隊列管理員已啟動",
		zap.Int("workers", cfg.Workers),
		zap.Int("max_queue_size", cfg.MaxSize),
	)

	return m
}

// worker 從隊列取出請求並執行
func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case req := <-m.queue:
			metrics.QueueDepth.Set(float64(len(m.queue)))
			req.Result <- m.run(req)
			atomic.AddInt64(&m.processed, 1)
		case <-m.done:
			return
		}
	}
}

// run 執行單一工作，panic 轉為錯誤
func (m *Manager) run(req *Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("Job panicked", zap.Any("error", r))
			res = Result{Error: fmt.Errorf("job panicked: %v", r)}
		}
	}()

	if err := req.Context.Err(); err != nil {
		return Result{Error: err}
	}

	value, err := req.Job(req.Context)
	return Result{Value: value, Error: err}
}

// Enqueue 將工作加入隊列，隊列已滿時立即返回 ErrQueueFull
func (m *Manager) Enqueue(ctx context.Context, job Job) (<-chan Result, error) {
	select {
	case <-m.done:
		return nil, fmt.Errorf("queue manager is closed")
	default:
	}

	// 創建隊列請求
	queueReq := &Request{
		Context: ctx,
		Job:     job,
		Result:  make(chan Result, 1),
	}

	// 加入隊列
	select {
	case m.queue <- queueReq:
		metrics.QueueDepth.Set(float64(len(m.queue)))
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return queueReq.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return nil, common.ErrQueueFull
	}
}

// Submit 將工作加入隊列，隊列已滿時在呼叫端直接執行
func (m *Manager) Submit(ctx context.Context, job Job) <-chan Result {
	ch, err := m.Enqueue(ctx, job)
	if err == nil {
		return ch
	}

	common.LogDebug("Queue unavailable, running inline", zap.Error(err))
	out := make(chan Result, 1)
	out <- m.run(&Request{Context: ctx, Job: job, Result: out})
	return out
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 關閉隊列管理器並等待 worker 結束
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()

		// 未處理的請求直接返回錯誤
		for {
			select {
			case req := <-m.queue:
				req.Result <- Result{Error: fmt.Errorf("queue manager is closed")}
				continue
			default:
			}
			break
		}
		common.LogInfo("隊列管理員已關閉",
			zap.Int64("processed", atomic.LoadInt64(&m.processed)),
		)
	})
}
