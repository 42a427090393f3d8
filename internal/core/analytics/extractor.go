package analytics

import (
	"strings"
	"time"

	"grocery-companion/internal/pkg/common"
)

// orderLineMarker 包裝實際商品的訂單行類型標記
const orderLineMarker = "ORDER_LINE"

// timestampLayouts 可接受的時間格式
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// OrdersFromHistory 從訂單歷史回應取出訂單列表與可用總數
// 支援 {orders: [...]}、{deliveries: [...]} 與直接的陣列
func OrdersFromHistory(result interface{}) ([]interface{}, int, bool) {
	switch v := result.(type) {
	case []interface{}:
		return v, len(v), true
	case map[string]interface{}:
		orders, ok := v["orders"].([]interface{})
		if !ok {
			orders, ok = v["deliveries"].([]interface{})
		}
		if !ok {
			return nil, 0, false
		}
		total := len(orders)
		if n, ok := common.NumberField(v, "total"); ok {
			total = int(n)
		}
		return orders, total, true
	default:
		return nil, 0, false
	}
}

// ExtractOrder 解析訂單層級資訊與商品，無法辨識的訂單回傳 ok=false
func ExtractOrder(raw interface{}) (OrderMeta, []OrderItem, bool) {
	order, ok := raw.(map[string]interface{})
	if !ok {
		return OrderMeta{}, nil, false
	}

	meta := OrderMeta{
		OrderID:     common.StringField(order, "id", "delivery_id"),
		DeliveredAt: DeliveryTime(order),
	}
	if meta.OrderID == "" {
		return meta, nil, false
	}

	items := ExtractItems(order)
	for i := range items {
		items[i].DeliveredAt = meta.DeliveredAt
	}
	return meta, items, true
}

// DeliveryTime 依序嘗試多個欄位取得送達時間
func DeliveryTime(order map[string]interface{}) *time.Time {
	candidates := []string{common.StringField(order, "delivery_time")}
	if slot, ok := common.MapField(order, "slot"); ok {
		candidates = append(candidates, common.StringField(slot, "window_start"))
	}
	candidates = append(candidates, common.StringField(order, "window_start"))
	if eta, ok := common.MapField(order, "eta"); ok {
		candidates = append(candidates, common.StringField(eta, "start"))
	}
	candidates = append(candidates, common.StringField(order, "delivery_date"))

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, ok := ParseTimestamp(c); ok {
			return &t
		}
	}
	return nil
}

// ParseTimestamp 解析時間字串，容許空白分隔與小數秒
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	// 去除小數秒與時區後再試
	normalized := strings.Replace(raw, " ", "T", 1)
	if i := strings.Index(normalized, "."); i > 0 {
		normalized = normalized[:i]
	}
	if t, err := time.Parse("2006-01-02T15:04:05", normalized); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// ExtractItems 將一張訂單的商品正規化
func ExtractItems(order map[string]interface{}) []OrderItem {
	lines := common.ListField(order, "items")

	// 子訂單包裝
	if len(lines) == 0 {
		for _, sub := range common.ListField(order, "orders") {
			if subOrder, ok := sub.(map[string]interface{}); ok {
				lines = append(lines, common.ListField(subOrder, "items")...)
			}
		}
	}
	if len(lines) == 0 {
		lines = common.ListField(order, "products")
	}
	if len(lines) == 0 {
		lines = common.ListField(order, "articles")
	}

	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		if item, ok := extractLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// extractLine 解析單一訂單行
func extractLine(raw interface{}) (OrderItem, bool) {
	line, ok := raw.(map[string]interface{})
	if !ok {
		return OrderItem{}, false
	}

	article := line
	if strings.Contains(common.StringField(line, "type"), orderLineMarker) {
		if nested := common.ListField(line, "items"); len(nested) > 0 {
			if first, ok := nested[0].(map[string]interface{}); ok {
				article = first
			}
		}
	}

	item := OrderItem{
		ProductID:    common.StringField(article, "id", "product_id", "article_id"),
		ProductName:  common.StringField(article, "name", "product_name", "article_name"),
		UnitQuantity: common.StringField(article, "unit_quantity"),
		ImageURL:     common.StringField(article, "image_url", "image"),
		Quantity:     quantityOf(article, line),
	}
	if item.ProductID == "" && item.ProductName == "" {
		return OrderItem{}, false
	}
	if price, ok := common.NumberField(article, "price", "unit_price"); ok {
		p := int(price)
		item.UnitPrice = &p
	}
	return item, true
}

// quantityOf 優先讀取 QUANTITY 裝飾，其次數量欄位，預設為 1
func quantityOf(article, line map[string]interface{}) int {
	for _, m := range []map[string]interface{}{article, line} {
		for _, d := range common.ListField(m, "decorators") {
			dec, ok := d.(map[string]interface{})
			if !ok || common.StringField(dec, "type") != "QUANTITY" {
				continue
			}
			if q, ok := common.NumberField(dec, "quantity", "count"); ok && q >= 1 {
				return int(q)
			}
		}
	}
	if q, ok := common.NumberField(article, "quantity", "count", "amount"); ok && q >= 1 {
		return int(q)
	}
	return 1
}
