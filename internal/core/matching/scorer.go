package matching

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"grocery-companion/internal/core/catalog"
)

// 評分權重
const (
	substringBonus  = 0.5
	tokenBonus      = 0.3
	overlapWeight   = 0.3
	longNamePenalty = 0.1
	noisyPenalty    = 0.1
	conciseBonus    = 0.1

	longNameLength    = 60
	conciseNameLength = 30
	maxExtraTokens    = 5
)

// Candidate 帶分數的候選商品
type Candidate struct {
	Product catalog.Product `json:"product"`
	Score   float64         `json:"score"`
}

// Score 計算單一商品名稱與食材的相似度，結果介於 0 到 1
// 長度規則以字元計算
func Score(ingredient, productName string) float64 {
	ing := normalize(ingredient)
	name := normalize(productName)
	if ing == "" || name == "" {
		return 0
	}

	ingTokens := tokenize(ing)
	ingSet := tokenSet(ingTokens)
	nameTokens := tokenize(name)
	nameSet := tokenSet(nameTokens)

	var score float64

	if strings.Contains(name, ing) {
		score += substringBonus
	}

	for _, tok := range nameTokens {
		if utf8.RuneCountInString(tok) > 2 && !stopWords[tok] && strings.Contains(ing, tok) {
			score += tokenBonus
			break
		}
	}

	if len(ingSet) > 0 {
		overlap := 0
		for tok := range ingSet {
			if nameSet[tok] {
				overlap++
			}
		}
		score += float64(overlap) / float64(len(ingSet)) * overlapWeight
	}

	if utf8.RuneCountInString(name) > longNameLength {
		score -= longNamePenalty
	}

	extra := 0
	for tok := range nameSet {
		if !ingSet[tok] {
			extra++
		}
	}
	if extra > maxExtraTokens {
		score -= noisyPenalty
	}

	if utf8.RuneCountInString(name) < conciseNameLength {
		for tok := range ingSet {
			if utf8.RuneCountInString(tok) > 3 && strings.Contains(name, tok) {
				score += conciseBonus
				break
			}
		}
	}

	return round(math.Min(1, math.Max(0, score)))
}

// round 取到小數第六位，避免浮點誤差影響門檻判斷
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// ScoreCandidates 以商品 ID 去重後評分，分數相同時保留輸入順序
func ScoreCandidates(ingredient string, products []catalog.Product) []Candidate {
	seen := make(map[string]bool, len(products))
	candidates := make([]Candidate, 0, len(products))
	for _, p := range products {
		key := p.ID
		if key == "" {
			key = "name:" + normalize(p.Name)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, Candidate{Product: p, Score: Score(ingredient, p.Name)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}
