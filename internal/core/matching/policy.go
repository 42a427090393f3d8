package matching

import (
	"strings"

	"grocery-companion/internal/core/catalog"
	"grocery-companion/internal/pkg/common"
)

// Status 比對狀態
type Status string

const (
	StatusMatched   Status = "matched"
	StatusPartial   Status = "partial"
	StatusUncertain Status = "uncertain"
)

// 狀態門檻
const (
	MatchedThreshold = 0.7
	PartialThreshold = 0.4

	// DefaultMaxMatches 每個食材保留的候選數
	DefaultMaxMatches = 5

	largeBatchQuantity = 500
)

// bulkUnits 以重量或容量計的單位
var bulkUnits = map[string]bool{
	"g": true, "gr": true, "gram": true, "grams": true,
	"ml": true, "milliliter": true, "milliliters": true,
}

// MatchResult 單一食材的比對結果
type MatchResult struct {
	Ingredient        common.Ingredient `json:"ingredient"`
	Product           catalog.Product   `json:"product"`
	RankedMatches     []Candidate       `json:"ranked_matches"`
	BestConfidence    float64           `json:"best_confidence"`
	Status            Status            `json:"status"`
	NeedsReview       bool              `json:"needs_review"`
	SuggestedQuantity int               `json:"suggested_quantity"`
}

// StatusFor 依最高分決定狀態
func StatusFor(confidence float64) Status {
	switch {
	case confidence >= MatchedThreshold:
		return StatusMatched
	case confidence >= PartialThreshold:
		return StatusPartial
	default:
		return StatusUncertain
	}
}

// SuggestQuantity 大份量的重量或容量食材建議買兩份
func SuggestQuantity(ing common.Ingredient) int {
	if ing.Quantity == nil {
		return 1
	}
	if *ing.Quantity > largeBatchQuantity && bulkUnits[strings.ToLower(strings.TrimSpace(ing.Unit))] {
		return 2
	}
	return 1
}

// Decide 由排序後的候選產生比對結果，沒有候選時回傳 ok=false
func Decide(ing common.Ingredient, ranked []Candidate, maxMatches int) (MatchResult, bool) {
	if len(ranked) == 0 {
		return MatchResult{}, false
	}
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}
	if len(ranked) > maxMatches {
		ranked = ranked[:maxMatches]
	}

	best := ranked[0]
	status := StatusFor(best.Score)
	return MatchResult{
		Ingredient:        ing,
		Product:           best.Product,
		RankedMatches:     ranked,
		BestConfidence:    best.Score,
		Status:            status,
		NeedsReview:       status != StatusMatched,
		SuggestedQuantity: SuggestQuantity(ing),
	}, true
}

// AutoAddEligible 只有高信心的比對可自動加入購物車
func (r MatchResult) AutoAddEligible() bool {
	return r.BestConfidence >= MatchedThreshold && r.Product.ID != ""
}
