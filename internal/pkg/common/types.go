package common

import "strings"

// Ingredient 解析後的食材
type Ingredient struct {
	Name         string   `json:"name"`
	Quantity     *float64 `json:"quantity"`
	Unit         string   `json:"unit"`
	OriginalText string   `json:"original_text"`
}

// SearchName 回傳用於搜尋的名稱，名稱為空時退回原始文字
func (i Ingredient) SearchName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	return strings.TrimSpace(i.OriginalText)
}

// Float64Ptr 取得浮點數指標
func Float64Ptr(v float64) *float64 {
	return &v
}
