package analytics

import (
	"math"
	"sort"
	"time"
)

// FrequencyStats 由購買時間推得的頻率統計
type FrequencyStats struct {
	AvgDaysBetween float64
	Confidence     float64
	Cadence        Cadence
}

// CalculateFrequency 由購買時間計算平均間隔、穩定度與週期
// 少於兩個時間點時無法推得間隔，回傳 ok=false
func CalculateFrequency(dates []time.Time) (FrequencyStats, bool) {
	if len(dates) < 2 {
		return FrequencyStats{}, false
	}

	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, wholeDays(sorted[i].Sub(sorted[i-1])))
	}

	avg := mean(intervals)

	confidence := 0.5
	if len(intervals) > 1 {
		std := math.Sqrt(populationVariance(intervals, avg))
		confidence = math.Min(1, math.Max(0, 1-std/(avg+1)))
	}

	return FrequencyStats{
		AvgDaysBetween: avg,
		Confidence:     confidence,
		Cadence:        CadenceFor(avg),
	}, true
}

// CadenceFor 平均間隔天數對應的週期
func CadenceFor(avgDays float64) Cadence {
	switch {
	case avgDays <= 7:
		return CadenceWeekly
	case avgDays <= 14:
		return CadenceBiweekly
	case avgDays <= 30:
		return CadenceMonthly
	default:
		return CadenceOccasional
	}
}

// BuildRecord 由商品彙總建立頻率紀錄，可解析的時間不足兩個時回傳 ok=false
func BuildRecord(userID string, p ProductPurchases, now time.Time) (PurchaseFrequency, bool) {
	dates := make([]time.Time, 0, len(p.PurchaseDates))
	for _, raw := range p.PurchaseDates {
		if t, ok := ParseTimestamp(raw); ok {
			dates = append(dates, t)
		}
	}

	stats, ok := CalculateFrequency(dates)
	if !ok {
		return PurchaseFrequency{}, false
	}

	return PurchaseFrequency{
		UserID:             userID,
		ProductID:          p.ProductID,
		ProductName:        p.ProductName,
		TotalPurchases:     p.PurchaseCount,
		TotalQuantity:      p.TotalQuantity,
		FirstPurchased:     p.FirstPurchased,
		LastPurchased:      p.LastPurchased,
		AvgDaysBetween:     stats.AvgDaysBetween,
		ConfidenceScore:    stats.Confidence,
		SuggestedFrequency: stats.Cadence,
		CalculatedAt:       now,
	}, true
}

// wholeDays 時間差的整數天數，向下取整
func wholeDays(d time.Duration) float64 {
	return math.Floor(d.Hours() / 24)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationVariance(values []float64, avg float64) float64 {
	var sum float64
	for _, v := range values {
		sum += (v - avg) * (v - avg)
	}
	return sum / float64(len(values))
}
