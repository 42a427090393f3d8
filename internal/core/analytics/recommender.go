package analytics

import (
	"math"
	"sort"
	"time"
)

// 週期清單與補貨清單的預設門檻
const (
	DefaultMinConfidence   = 0.6
	DefaultMinPurchases    = 3
	DefaultSuggestionLimit = 20
	DefaultReorderLimit    = 10
)

// RecommenderOptions 推薦門檻
type RecommenderOptions struct {
	MinConfidence   float64
	MinPurchases    int
	SuggestionLimit int
	ReorderLimit    int
}

// DefaultRecommenderOptions 預設門檻
func DefaultRecommenderOptions() RecommenderOptions {
	return RecommenderOptions{
		MinConfidence:   DefaultMinConfidence,
		MinPurchases:    DefaultMinPurchases,
		SuggestionLimit: DefaultSuggestionLimit,
		ReorderLimit:    DefaultReorderLimit,
	}
}

// Recommender 由頻率紀錄產生週期清單與補貨建議
type Recommender struct {
	opts RecommenderOptions
}

// NewRecommender 創建推薦器
func NewRecommender(opts RecommenderOptions) *Recommender {
	return &Recommender{opts: opts}
}

// RecurringSuggestions 篩選穩定的商品並依週期分組，occasional 不列入
func (r *Recommender) RecurringSuggestions(records []PurchaseFrequency) RecurringSuggestions {
	eligible := make([]PurchaseFrequency, 0, len(records))
	for _, rec := range records {
		if rec.ConfidenceScore >= r.opts.MinConfidence && rec.TotalPurchases >= r.opts.MinPurchases {
			eligible = append(eligible, rec)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].ConfidenceScore != eligible[j].ConfidenceScore {
			return eligible[i].ConfidenceScore > eligible[j].ConfidenceScore
		}
		return eligible[i].TotalPurchases > eligible[j].TotalPurchases
	})
	if len(eligible) > r.opts.SuggestionLimit {
		eligible = eligible[:r.opts.SuggestionLimit]
	}

	out := RecurringSuggestions{
		Weekly:   []RecurringItem{},
		Biweekly: []RecurringItem{},
		Monthly:  []RecurringItem{},
	}
	for _, rec := range eligible {
		item := RecurringItem{
			ProductID:   rec.ProductID,
			ProductName: rec.ProductName,
			AvgDays:     rec.AvgDaysBetween,
			Confidence:  rec.ConfidenceScore,
			Purchases:   rec.TotalPurchases,
		}
		switch rec.SuggestedFrequency {
		case CadenceWeekly:
			out.Weekly = append(out.Weekly, item)
		case CadenceBiweekly:
			out.Biweekly = append(out.Biweekly, item)
		case CadenceMonthly:
			out.Monthly = append(out.Monthly, item)
		}
	}
	return out
}

// DueForReorder 找出預期下次購買時間已過的商品，依逾期天數排序
func (r *Recommender) DueForReorder(records []PurchaseFrequency, now time.Time) []ReorderSuggestion {
	due := make([]ReorderSuggestion, 0)
	for _, rec := range records {
		if rec.TotalPurchases < r.opts.MinPurchases || rec.LastPurchased.IsZero() {
			continue
		}
		expected := rec.LastPurchased.Add(time.Duration(rec.AvgDaysBetween * float64(24*time.Hour)))
		if !expected.Before(now) {
			continue
		}
		due = append(due, ReorderSuggestion{
			ProductID:     rec.ProductID,
			ProductName:   rec.ProductName,
			LastPurchased: rec.LastPurchased,
			ExpectedNext:  expected,
			DaysOverdue:   int(math.Floor(now.Sub(expected).Hours() / 24)),
			AvgDays:       rec.AvgDaysBetween,
			Confidence:    rec.ConfidenceScore,
		})
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DaysOverdue > due[j].DaysOverdue
	})
	if len(due) > r.opts.ReorderLimit {
		due = due[:r.opts.ReorderLimit]
	}
	return due
}
