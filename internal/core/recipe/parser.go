package recipe

import (
	"regexp"
	"strconv"
	"strings"

	"grocery-companion/internal/pkg/common"
)

var (
	// 數量 + 單位 + 名稱，例如 "2 el olijfolie"、"200 gram bloem"
	quantityUnitPattern = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(el|eetlepel|tl|theelepel|gram|g|kg|ml|l|liter|stuks?|st)\s+(.+)$`)
	// 數量 + 名稱，例如 "2 eieren"
	quantityPattern = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s+(.+)$`)

	// 非食材的文字行
	skipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\d+\s*min`),
		regexp.MustCompile(`(?i)^stap\s+\d`),
		regexp.MustCompile(`(?i)^bereid`),
		regexp.MustCompile(`(?i)^http`),
	}

	unitHints = []string{"gram", "el", "tl", "stuks", "ml", "liter", "kg", "eetlepel", "theelepel"}
)

// ParseIngredientLine 解析單行食材文字
func ParseIngredientLine(text string) (common.Ingredient, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return common.Ingredient{}, false
	}

	if m := quantityUnitPattern.FindStringSubmatch(text); m != nil {
		return common.Ingredient{
			Name:         strings.TrimSpace(m[3]),
			Quantity:     parseQuantity(m[1]),
			Unit:         strings.ToLower(m[2]),
			OriginalText: text,
		}, true
	}

	if m := quantityPattern.FindStringSubmatch(text); m != nil {
		return common.Ingredient{
			Name:         strings.TrimSpace(m[2]),
			Quantity:     parseQuantity(m[1]),
			OriginalText: text,
		}, true
	}

	return common.Ingredient{
		Name:         text,
		OriginalText: text,
	}, true
}

// ParseIngredientLines 逐行解析，忽略空行與 # 開頭的註解
func ParseIngredientLines(text string) []common.Ingredient {
	var ingredients []common.Ingredient
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if ing, ok := ParseIngredientLine(line); ok {
			ingredients = append(ingredients, ing)
		}
	}
	return ingredients
}

// ExtractIngredientLines 從自由文字中挑出像食材的行
func ExtractIngredientLines(text string) []common.Ingredient {
	var ingredients []common.Ingredient
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 3 || len(line) > 100 {
			continue
		}
		if isSkipped(line) {
			continue
		}
		if !startsWithDigit(line) && !hasUnitHint(line) {
			continue
		}
		if ing, ok := ParseIngredientLine(line); ok {
			ingredients = append(ingredients, ing)
		}
	}
	return ingredients
}

func isSkipped(line string) bool {
	for _, p := range skipPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func startsWithDigit(line string) bool {
	return line[0] >= '0' && line[0] <= '9'
}

func hasUnitHint(line string) bool {
	lower := strings.ToLower(line)
	for _, unit := range unitHints {
		if strings.Contains(lower, unit) {
			return true
		}
	}
	return false
}

// parseQuantity 解析數量，接受逗號小數點
func parseQuantity(raw string) *float64 {
	q, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &q
}
