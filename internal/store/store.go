package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grocery-companion/internal/core/analytics"
	"grocery-companion/internal/pkg/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// purchaseDateFormat 彙總購買時間使用的格式，與 analytics.ParseTimestamp 相容
const purchaseDateFormat = `YYYY-MM-DD"T"HH24:MI:SS`

// Store 以 gorm 實作的分析資料存取
type Store struct {
	db *gorm.DB
}

var _ analytics.Store = (*Store)(nil)

// New 創建資料存取層
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveOrder 寫入原始訂單，重複同步時更新送達時間與內容
func (s *Store) SaveOrder(ctx context.Context, userID string, meta analytics.OrderMeta, raw interface{}) error {
	payload, err := common.ToJSON(raw)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", meta.OrderID, err)
	}
	row := OrderCache{
		UserID:      userID,
		OrderID:     meta.OrderID,
		DeliveredAt: meta.DeliveredAt,
		Payload:     payload,
	}
	return upsertOrder(s.db.WithContext(ctx), &row).Error
}

func upsertOrder(tx *gorm.DB, row *OrderCache) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"delivered_at", "payload", "updated_at"}),
	}).Create(row)
}

// SaveOrderItems 寫入訂單商品，已存在的 (user, order, product) 忽略，回傳新增筆數
func (s *Store) SaveOrderItems(ctx context.Context, userID, orderID string, items []analytics.OrderItem) (int, error) {
	records := itemRecords(userID, orderID, items)
	if len(records) == 0 {
		return 0, nil
	}
	res := insertItems(s.db.WithContext(ctx), records)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func insertItems(tx *gorm.DB, records []OrderItemRecord) *gorm.DB {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&records)
}

// itemRecords 轉為資料列，同一訂單重複的商品合併數量
func itemRecords(userID, orderID string, items []analytics.OrderItem) []OrderItemRecord {
	records := make([]OrderItemRecord, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		key := item.ProductKey()
		if i, ok := index[key]; ok {
			records[i].Quantity += item.Quantity
			if records[i].UnitPrice != nil {
				records[i].TotalPrice = *records[i].UnitPrice * records[i].Quantity
			}
			continue
		}
		index[key] = len(records)
		records = append(records, OrderItemRecord{
			UserID:       userID,
			OrderID:      orderID,
			ProductKey:   key,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice(),
			UnitQuantity: item.UnitQuantity,
			ImageURL:     item.ImageURL,
			DeliveredAt:  item.DeliveredAt,
		})
	}
	return records
}

// purchaseRow 商品彙總查詢結果
type purchaseRow struct {
	ProductKey     string
	ProductName    string
	PurchaseCount  int
	TotalQuantity  int
	FirstPurchased time.Time
	LastPurchased  time.Time
	PurchaseDates  string
}

// ProductPurchases 依商品彙總有送達時間的購買紀錄
func (s *Store) ProductPurchases(ctx context.Context, userID string, minPurchases int) ([]analytics.ProductPurchases, error) {
	var rows []purchaseRow
	if err := purchasesQuery(s.db.WithContext(ctx), userID, minPurchases).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]analytics.ProductPurchases, 0, len(rows))
	for _, r := range rows {
		var dates []string
		if r.PurchaseDates != "" {
			dates = strings.Split(r.PurchaseDates, ",")
		}
		out = append(out, analytics.ProductPurchases{
			ProductID:      r.ProductKey,
			ProductName:    r.ProductName,
			PurchaseCount:  r.PurchaseCount,
			TotalQuantity:  r.TotalQuantity,
			FirstPurchased: r.FirstPurchased.UTC(),
			LastPurchased:  r.LastPurchased.UTC(),
			PurchaseDates:  dates,
		})
	}
	return out, nil
}

func purchasesQuery(tx *gorm.DB, userID string, minPurchases int) *gorm.DB {
	return tx.Model(&OrderItemRecord{}).
		Select(`product_key,
			MAX(product_name) AS product_name,
			COUNT(*) AS purchase_count,
			COALESCE(SUM(quantity), 0) AS total_quantity,
			MIN(delivered_at) AS first_purchased,
			MAX(delivered_at) AS last_purchased,
			STRING_AGG(TO_CHAR(delivered_at AT TIME ZONE 'UTC', '` + purchaseDateFormat + `'), ',' ORDER BY delivered_at) AS purchase_dates`).
		Where("user_id = ? AND delivered_at IS NOT NULL", userID).
		Group("product_key").
		Having("COUNT(*) >= ?", minPurchases)
}

// UpsertFrequency 以 (user, product) 為鍵寫入頻率紀錄，所有統計欄位整筆覆寫
func (s *Store) UpsertFrequency(ctx context.Context, rec analytics.PurchaseFrequency) error {
	row := frequencyRow(rec)
	return upsertFrequency(s.db.WithContext(ctx), &row).Error
}

func upsertFrequency(tx *gorm.DB, row *PurchaseFrequencyRecord) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_name", "total_purchases", "total_quantity",
			"first_purchased", "last_purchased", "avg_days_between",
			"confidence_score", "suggested_frequency", "calculated_at",
		}),
	}).Create(row)
}

func frequencyRow(rec analytics.PurchaseFrequency) PurchaseFrequencyRecord {
	return PurchaseFrequencyRecord{
		UserID:             rec.UserID,
		ProductID:          rec.ProductID,
		ProductName:        rec.ProductName,
		TotalPurchases:     rec.TotalPurchases,
		TotalQuantity:      rec.TotalQuantity,
		FirstPurchased:     rec.FirstPurchased,
		LastPurchased:      rec.LastPurchased,
		AvgDaysBetween:     rec.AvgDaysBetween,
		ConfidenceScore:    rec.ConfidenceScore,
		SuggestedFrequency: string(rec.SuggestedFrequency),
		CalculatedAt:       rec.CalculatedAt,
	}
}

// Frequencies 讀取使用者購買次數達門檻的頻率紀錄
func (s *Store) Frequencies(ctx context.Context, userID string, minPurchases int) ([]analytics.PurchaseFrequency, error) {
	var rows []PurchaseFrequencyRecord
	if err := frequenciesQuery(s.db.WithContext(ctx), userID, minPurchases).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]analytics.PurchaseFrequency, 0, len(rows))
	for _, r := range rows {
		out = append(out, analytics.PurchaseFrequency{
			UserID:             r.UserID,
			ProductID:          r.ProductID,
			ProductName:        r.ProductName,
			TotalPurchases:     r.TotalPurchases,
			TotalQuantity:      r.TotalQuantity,
			FirstPurchased:     r.FirstPurchased.UTC(),
			LastPurchased:      r.LastPurchased.UTC(),
			AvgDaysBetween:     r.AvgDaysBetween,
			ConfidenceScore:    r.ConfidenceScore,
			SuggestedFrequency: analytics.Cadence(r.SuggestedFrequency),
			CalculatedAt:       r.CalculatedAt.UTC(),
		})
	}
	return out, nil
}

func frequenciesQuery(tx *gorm.DB, userID string, minPurchases int) *gorm.DB {
	return tx.Where("user_id = ? AND total_purchases >= ?", userID, minPurchases).
		Order("confidence_score DESC").
		Order("total_purchases DESC")
}

// topRow 熱門商品查詢結果
type topRow struct {
	ProductKey    string
	ProductName   string
	TotalQuantity int
	OrderCount    int
	LastOrdered   *time.Time
}

// TopProducts 依總數量排序的商品
func (s *Store) TopProducts(ctx context.Context, userID string, limit int) ([]analytics.TopProduct, error) {
	var rows []topRow
	if err := topProductsQuery(s.db.WithContext(ctx), userID, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]analytics.TopProduct, 0, len(rows))
	for _, r := range rows {
		out = append(out, analytics.TopProduct{
			ProductID:     r.ProductKey,
			ProductName:   r.ProductName,
			TotalQuantity: r.TotalQuantity,
			OrderCount:    r.OrderCount,
			LastOrdered:   r.LastOrdered,
		})
	}
	return out, nil
}

func topProductsQuery(tx *gorm.DB, userID string, limit int) *gorm.DB {
	return tx.Model(&OrderItemRecord{}).
		Select(`product_key,
			MAX(product_name) AS product_name,
			COALESCE(SUM(quantity), 0) AS total_quantity,
			COUNT(DISTINCT order_id) AS order_count,
			MAX(delivered_at) AS last_ordered`).
		Where("user_id = ?", userID).
		Group("product_key").
		Order("total_quantity DESC").
		Limit(limit)
}

// spendingRow 月消費查詢結果
type spendingRow struct {
	Month      string
	OrderCount int
	TotalSpent int
	TotalItems int
}

// MonthlySpending 依送達月份 (UTC) 彙總消費，新的月份在前
func (s *Store) MonthlySpending(ctx context.Context, userID string, months int) ([]analytics.MonthlySpending, error) {
	var rows []spendingRow
	if err := spendingQuery(s.db.WithContext(ctx), userID, months).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]analytics.MonthlySpending, 0, len(rows))
	for _, r := range rows {
		out = append(out, analytics.MonthlySpending(r))
	}
	return out, nil
}

func spendingQuery(tx *gorm.DB, userID string, months int) *gorm.DB {
	return tx.Model(&OrderItemRecord{}).
		Select(`TO_CHAR(delivered_at AT TIME ZONE 'UTC', 'YYYY-MM') AS month,
			COUNT(DISTINCT order_id) AS order_count,
			COALESCE(SUM(total_price), 0) AS total_spent,
			COALESCE(SUM(quantity), 0) AS total_items`).
		Where("user_id = ? AND delivered_at IS NOT NULL", userID).
		Group("month").
		Order("month DESC").
		Limit(months)
}
