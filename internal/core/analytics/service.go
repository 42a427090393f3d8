package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"grocery-companion/internal/metrics"
	"grocery-companion/internal/pkg/common"

	"go.uber.org/zap"
)

// historyFilter 同步時讀取的訂單範圍
const historyFilter = "ALL"

// 消費統計的預設與上限月數
const (
	DefaultSpendingMonths = 6
	MaxSpendingMonths     = 24
)

// Store 分析資料的持久層
type Store interface {
	// SaveOrder 快取原始訂單，重複同步時覆寫
	SaveOrder(ctx context.Context, userID string, meta OrderMeta, raw interface{}) error
	// SaveOrderItems 寫入訂單商品，已存在的項目忽略
	SaveOrderItems(ctx context.Context, userID, orderID string, items []OrderItem) (int, error)
	// ProductPurchases 依商品彙總有送達時間的購買紀錄
	ProductPurchases(ctx context.Context, userID string, minPurchases int) ([]ProductPurchases, error)
	// UpsertFrequency 以 (user, product) 為鍵寫入頻率紀錄
	UpsertFrequency(ctx context.Context, rec PurchaseFrequency) error
	// Frequencies 讀取頻率紀錄
	Frequencies(ctx context.Context, userID string, minPurchases int) ([]PurchaseFrequency, error)
	// TopProducts 依總數量排序的商品
	TopProducts(ctx context.Context, userID string, limit int) ([]TopProduct, error)
	// MonthlySpending 最近 months 個有送達訂單的月份，新的在前
	MonthlySpending(ctx context.Context, userID string, months int) ([]MonthlySpending, error)
}

// OrderHistorySource 訂單歷史來源
type OrderHistorySource interface {
	GetOrderHistory(ctx context.Context, filter string, limit int) (interface{}, error)
}

// Options 分析服務設定
type Options struct {
	Recommender  RecommenderOptions
	HistoryLimit int
	TopProducts  int
}

// Service 購買頻率分析服務
type Service struct {
	store       Store
	history     OrderHistorySource
	recommender *Recommender
	opts        Options
	now         func() time.Time

	// 同一使用者的同步與重算序列化
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService 創建分析服務
func NewService(store Store, history OrderHistorySource, opts Options) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	if opts.TopProducts <= 0 {
		opts.TopProducts = 20
	}
	return &Service{
		store:       store,
		history:     history,
		recommender: NewRecommender(opts.Recommender),
		opts:        opts,
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
	}
}

// userLock 取得使用者專屬的鎖
func (s *Service) userLock(userID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[userID] = mu
	}
	return mu
}

// SyncOrders 從目錄服務同步訂單歷史並寫入商品
// 單筆訂單失敗只記錄並繼續
func (s *Service) SyncOrders(ctx context.Context, userID string) (*SyncResult, error) {
	if userID == "" {
		return nil, common.ErrMissingUser
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	result, err := s.history.GetOrderHistory(ctx, historyFilter, s.opts.HistoryLimit)
	if err != nil {
		return nil, common.ErrCatalogUnavailable.Wrap(fmt.Errorf("fetch order history: %w", err))
	}

	orders, total, ok := OrdersFromHistory(result)
	if !ok {
		return &SyncResult{Error: "No orders returned from API"}, nil
	}

	res := &SyncResult{TotalAvailable: total}
	for _, raw := range orders {
		meta, items, ok := ExtractOrder(raw)
		if !ok {
			common.LogWarn("Skipping order without ID", zap.String("user_id", userID))
			continue
		}

		if err := s.store.SaveOrder(ctx, userID, meta, raw); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			common.LogError("Failed to cache order", zap.String("order_id", meta.OrderID), zap.Error(err))
			continue
		}
		res.Synced++

		n, err := s.store.SaveOrderItems(ctx, userID, meta.OrderID, items)
		if err != nil {
			common.LogError("Failed to cache order items", zap.String("order_id", meta.OrderID), zap.Error(err))
			continue
		}
		res.ItemsSynced += n
	}

	metrics.RecordSync(res.Synced, res.ItemsSynced)
	common.LogInfo("Orders synced",
		zap.String("user_id", userID),
		zap.Int("synced", res.Synced),
		zap.Int("items_synced", res.ItemsSynced),
	)
	return res, nil
}

// RecomputeFrequencies 重新計算使用者所有商品的購買頻率
// 單一商品寫入失敗只記錄並跳過
func (s *Service) RecomputeFrequencies(ctx context.Context, userID string) (*RecomputeResult, error) {
	if userID == "" {
		return nil, common.ErrMissingUser
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	products, err := s.store.ProductPurchases(ctx, userID, 2)
	if err != nil {
		return nil, common.ErrStoreUnavailable.Wrap(fmt.Errorf("aggregate purchases: %w", err))
	}

	now := s.now()
	res := &RecomputeResult{TotalProducts: len(products)}
	for _, p := range products {
		rec, ok := BuildRecord(userID, p, now)
		if !ok {
			continue
		}
		if err := s.store.UpsertFrequency(ctx, rec); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			common.LogError("Failed to save purchase frequency",
				zap.String("product_id", p.ProductID),
				zap.Error(err),
			)
			continue
		}
		res.Calculated++
	}

	metrics.RecordRecompute(time.Since(start), res.Calculated)
	common.LogInfo("Purchase frequencies recomputed",
		zap.String("user_id", userID),
		zap.Int("calculated", res.Calculated),
		zap.Int("total_products", res.TotalProducts),
	)
	return res, nil
}

// GetRecurringSuggestions 依週期分組的建議清單
func (s *Service) GetRecurringSuggestions(ctx context.Context, userID string) (*RecurringSuggestions, error) {
	if userID == "" {
		return nil, common.ErrMissingUser
	}
	records, err := s.store.Frequencies(ctx, userID, s.opts.Recommender.MinPurchases)
	if err != nil {
		return nil, common.ErrStoreUnavailable.Wrap(err)
	}
	out := s.recommender.RecurringSuggestions(records)
	return &out, nil
}

// GetDueForReorder 已逾期應補貨的商品
func (s *Service) GetDueForReorder(ctx context.Context, userID string) ([]ReorderSuggestion, error) {
	if userID == "" {
		return nil, common.ErrMissingUser
	}
	records, err := s.store.Frequencies(ctx, userID, s.opts.Recommender.MinPurchases)
	if err != nil {
		return nil, common.ErrStoreUnavailable.Wrap(err)
	}
	return s.recommender.DueForReorder(records, s.now()), nil
}

// GetTopProducts 購買量最高的商品
func (s *Service) GetTopProducts(ctx context.Context, userID string, limit int) ([]TopProduct, error) {
	if userID == "" {
		return nil, common.ErrMissingUser
	}
	if limit <= 0 {
		limit = s.opts.TopProducts
	}
	products, err := s.store.TopProducts(ctx, userID, limit)
	if err != nil {
		return nil, common.ErrStoreUnavailable.Wrap(err)
	}
	return products, nil
}

// GetFrequencies 購買次數達門檻的頻率紀錄，minPurchases 小於 1 時使用預設門檻
func (s *Service) GetFrequencies(ctx context.Context, userID string, minPurchases int) ([]PurchaseFrequency, error) {
	if userID == "" {
		return nil, common.ErrMissingUser
	}
	if minPurchases < 1 {
		minPurchases = s.opts.Recommender.MinPurchases
	}
	if minPurchases < 1 {
		minPurchases = DefaultMinPurchases
	}
	records, err := s.store.Frequencies(ctx, userID, minPurchases)
	if err != nil {
		return nil, common.ErrStoreUnavailable.Wrap(err)
	}
	if records == nil {
		records = []PurchaseFrequency{}
	}
	return records, nil
}

// GetSpending 最近數個月的消費彙總
func (s *Service) GetSpending(ctx context.Context, userID string, months int) (*SpendingSummary, error) {
	if userID == "" {
		return nil, common.ErrMissingUser
	}
	if months <= 0 {
		months = DefaultSpendingMonths
	}
	if months > MaxSpendingMonths {
		months = MaxSpendingMonths
	}

	monthly, err := s.store.MonthlySpending(ctx, userID, months)
	if err != nil {
		return nil, common.ErrStoreUnavailable.Wrap(err)
	}

	out := &SpendingSummary{Monthly: make([]MonthlySpending, 0, len(monthly))}
	for _, m := range monthly {
		out.Monthly = append(out.Monthly, m)
		out.Total += m.TotalSpent
	}
	return out, nil
}
