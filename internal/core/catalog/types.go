package catalog

import (
	"grocery-companion/internal/pkg/common"
)

// 目錄工具名稱
const (
	ToolSearchProducts  = "search_products"
	ToolGetOrderHistory = "get_order_history"
	ToolAddToCart       = "add_to_cart"
	ToolBulkAddToCart   = "bulk_add_to_cart"
	ToolGetCart         = "get_cart"
)

// Product 目錄商品
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int    `json:"price"`
	DisplayPrice int    `json:"display_price,omitempty"`
	UnitQuantity string `json:"unit_quantity,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}

// CartLine 批次加入購物車的項目
type CartLine struct {
	ProductID string `json:"productId"`
	Count     int    `json:"count"`
}

// toolRequest 工具調用請求
type toolRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// toolResponse 工具調用回應
type toolResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// ProductsFromResult 將搜尋結果正規化為商品列表
// 接受商品陣列、含 products 或 items 的物件，以及分組後的 items 巢狀結構
func ProductsFromResult(result interface{}) []Product {
	var raw []interface{}
	switch v := result.(type) {
	case []interface{}:
		raw = v
	case map[string]interface{}:
		raw = common.ListField(v, "products")
		if len(raw) == 0 {
			raw = common.ListField(v, "items")
		}
		if len(raw) == 0 {
			raw = common.ListField(v, "results")
		}
	}

	products := make([]Product, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		// 分組結構：展開內層 items
		if nested := common.ListField(m, "items"); len(nested) > 0 && common.StringField(m, "name") == "" {
			products = append(products, ProductsFromResult(nested)...)
			continue
		}
		if p, ok := productFromMap(m); ok {
			products = append(products, p)
		}
	}
	return products
}

// productFromMap 解析單一商品
func productFromMap(m map[string]interface{}) (Product, bool) {
	p := Product{
		ID:           common.StringField(m, "id", "product_id", "article_id"),
		Name:         common.StringField(m, "name", "product_name", "display_name"),
		UnitQuantity: common.StringField(m, "unit_quantity"),
		ImageURL:     common.StringField(m, "image_url", "image_id"),
	}
	if p.ID == "" && p.Name == "" {
		return Product{}, false
	}
	if price, ok := common.NumberField(m, "price", "unit_price"); ok {
		p.Price = int(price)
	}
	if price, ok := common.NumberField(m, "display_price"); ok {
		p.DisplayPrice = int(price)
	}
	return p, true
}
