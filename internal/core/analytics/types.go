package analytics

import (
	"strings"
	"time"
)

// Cadence 建議的購買週期
type Cadence string

const (
	CadenceWeekly     Cadence = "weekly"
	CadenceBiweekly   Cadence = "biweekly"
	CadenceMonthly    Cadence = "monthly"
	CadenceOccasional Cadence = "occasional"
)

// OrderMeta 訂單層級的資訊
type OrderMeta struct {
	OrderID     string
	DeliveredAt *time.Time
}

// OrderItem 歷史訂單中的單一商品
type OrderItem struct {
	ProductID    string     `json:"product_id"`
	ProductName  string     `json:"product_name"`
	Quantity     int        `json:"quantity"`
	UnitPrice    *int       `json:"unit_price,omitempty"`
	UnitQuantity string     `json:"unit_quantity,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	DeliveredAt  *time.Time `json:"delivery_timestamp,omitempty"`
}

// ProductKey 商品彙總鍵，沒有商品 ID 時以名稱代替
func (i OrderItem) ProductKey() string {
	if i.ProductID != "" {
		return i.ProductID
	}
	return "name:" + strings.ToLower(strings.TrimSpace(i.ProductName))
}

// TotalPrice 單價乘以數量
func (i OrderItem) TotalPrice() int {
	if i.UnitPrice == nil {
		return 0
	}
	return *i.UnitPrice * i.Quantity
}

// ProductPurchases 單一商品的購買彙總，PurchaseDates 為依時間排序的原始時間字串
type ProductPurchases struct {
	ProductID      string
	ProductName    string
	PurchaseCount  int
	TotalQuantity  int
	FirstPurchased time.Time
	LastPurchased  time.Time
	PurchaseDates  []string
}

// PurchaseFrequency 每個使用者與商品的購買頻率紀錄
type PurchaseFrequency struct {
	UserID             string    `json:"-"`
	ProductID          string    `json:"product_id"`
	ProductName        string    `json:"product_name"`
	TotalPurchases     int       `json:"total_purchases"`
	TotalQuantity      int       `json:"total_quantity"`
	FirstPurchased     time.Time `json:"first_purchased"`
	LastPurchased      time.Time `json:"last_purchased"`
	AvgDaysBetween     float64   `json:"avg_days_between"`
	ConfidenceScore    float64   `json:"confidence_score"`
	SuggestedFrequency Cadence   `json:"suggested_frequency"`
	CalculatedAt       time.Time `json:"calculated_at"`
}

// RecurringItem 週期清單中的商品
type RecurringItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	AvgDays     float64 `json:"avg_days"`
	Confidence  float64 `json:"confidence"`
	Purchases   int     `json:"total_purchases"`
}

// RecurringSuggestions 依週期分組的建議清單
type RecurringSuggestions struct {
	Weekly   []RecurringItem `json:"weekly"`
	Biweekly []RecurringItem `json:"biweekly"`
	Monthly  []RecurringItem `json:"monthly"`
}

// ReorderSuggestion 已逾期應補貨的商品
type ReorderSuggestion struct {
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	LastPurchased time.Time `json:"last_purchased"`
	ExpectedNext  time.Time `json:"expected_next"`
	DaysOverdue   int       `json:"days_overdue"`
	AvgDays       float64   `json:"avg_days"`
	Confidence    float64   `json:"confidence"`
}

// TopProduct 購買量最高的商品
type TopProduct struct {
	ProductID     string     `json:"product_id"`
	ProductName   string     `json:"product_name"`
	TotalQuantity int        `json:"total_quantity"`
	OrderCount    int        `json:"order_count"`
	LastOrdered   *time.Time `json:"last_ordered"`
}

// MonthlySpending 單月消費彙總，Month 格式為 YYYY-MM
type MonthlySpending struct {
	Month      string `json:"month"`
	OrderCount int    `json:"order_count"`
	TotalSpent int    `json:"total_spent"`
	TotalItems int    `json:"total_items"`
}

// SpendingSummary 最近數個月的消費，Total 為各月合計
type SpendingSummary struct {
	Monthly []MonthlySpending `json:"monthly"`
	Total   int               `json:"total"`
}

// SyncResult 訂單同步結果
type SyncResult struct {
	Synced         int    `json:"synced"`
	ItemsSynced    int    `json:"items_synced"`
	TotalAvailable int    `json:"total_available"`
	Error          string `json:"error,omitempty"`
}

// RecomputeResult 頻率重算結果
type RecomputeResult struct {
	Calculated    int `json:"calculated"`
	TotalProducts int `json:"total_products"`
}
