package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"grocery-companion/internal/core/queue"
	"grocery-companion/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// checkTimeout 單一依賴檢查的逾時
const checkTimeout = 3 * time.Second

// Checker 依賴檢查函式
type Checker func(ctx context.Context) error

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status       string                 `json:"status"`
	Timestamp    time.Time              `json:"timestamp"`
	Version      string                 `json:"version"`
	Runtime      map[string]interface{} `json:"runtime"`
	Queue        *queue.Status          `json:"queue,omitempty"`
	Dependencies map[string]string      `json:"dependencies,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	queue   *queue.Manager
	checks  map[string]Checker
}

// NewHandler 創建健康檢查處理器
func NewHandler(version string, q *queue.Manager) *Handler {
	return &Handler{
		version: version,
		queue:   q,
		checks:  make(map[string]Checker),
	}
}

// AddCheck 註冊依賴檢查
func (h *Handler) AddCheck(name string, check Checker) {
	h.checks[name] = check
}

// runChecks 執行所有依賴檢查
func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := h.checks[name](checkCtx)
		cancel()
		if err != nil {
			common.LogWarn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
			results[name] = "unavailable"
			healthy = false
			continue
		}
		results[name] = "ok"
	}
	return results, healthy
}

// HealthCheck 健康檢查處理器，依賴異常時狀態為 degraded 但仍返回 200
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	deps, healthy := h.runChecks(c.Request.Context())
	status := "ok"
	if !healthy {
		status = "degraded"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Dependencies: deps,
	}
	if h.queue != nil {
		response.Queue = h.queue.GetQueueStatus()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("status", status),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器，任一依賴不可用時返回 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	deps, healthy := h.runChecks(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "not_ready",
			"dependencies": deps,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"dependencies": deps,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
