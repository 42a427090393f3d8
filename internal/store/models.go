package store

import "time"

// OrderCache 同步過的原始訂單
type OrderCache struct {
	ID          uint       `gorm:"primaryKey"`
	UserID      string     `gorm:"size:255;not null;uniqueIndex:idx_order_cache_user_order"`
	OrderID     string     `gorm:"size:255;not null;uniqueIndex:idx_order_cache_user_order"`
	DeliveredAt *time.Time `gorm:"index"`
	Payload     string     `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName 表名
func (OrderCache) TableName() string { return "order_cache" }

// OrderItemRecord 訂單中的商品，(user, order, product_key) 唯一
type OrderItemRecord struct {
	ID           uint       `gorm:"primaryKey"`
	UserID       string     `gorm:"size:255;not null;uniqueIndex:idx_order_items_unique;index:idx_order_items_user_product"`
	OrderID      string     `gorm:"size:255;not null;uniqueIndex:idx_order_items_unique"`
	ProductKey   string     `gorm:"size:255;not null;uniqueIndex:idx_order_items_unique;index:idx_order_items_user_product"`
	ProductID    string     `gorm:"size:255"`
	ProductName  string     `gorm:"size:500"`
	Quantity     int        `gorm:"not null;default:1"`
	UnitPrice    *int
	TotalPrice   int
	UnitQuantity string     `gorm:"size:100"`
	ImageURL     string     `gorm:"size:500"`
	DeliveredAt  *time.Time `gorm:"index"`
	CreatedAt    time.Time
}

// TableName 表名
func (OrderItemRecord) TableName() string { return "order_items" }

// PurchaseFrequencyRecord 每個使用者與商品的購買頻率
type PurchaseFrequencyRecord struct {
	ID                 uint      `gorm:"primaryKey"`
	UserID             string    `gorm:"size:255;not null;uniqueIndex:idx_purchase_frequency_user_product"`
	ProductID          string    `gorm:"size:255;not null;uniqueIndex:idx_purchase_frequency_user_product"`
	ProductName        string    `gorm:"size:500"`
	TotalPurchases     int       `gorm:"not null;default:0"`
	TotalQuantity      int       `gorm:"not null;default:0"`
	FirstPurchased     time.Time
	LastPurchased      time.Time
	AvgDaysBetween     float64
	ConfidenceScore    float64 `gorm:"index"`
	SuggestedFrequency string  `gorm:"size:20"`
	CalculatedAt       time.Time
}

// TableName 表名
func (PurchaseFrequencyRecord) TableName() string { return "purchase_frequencies" }

// Models 需要遷移的資料表
func Models() []interface{} {
	return []interface{}{&OrderCache{}, &OrderItemRecord{}, &PurchaseFrequencyRecord{}}
}
