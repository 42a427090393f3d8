package matching

import (
	"testing"

	"grocery-companion/internal/core/catalog"
	"grocery-companion/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor_Thresholds(t *testing.T) {
	assert.Equal(t, StatusMatched, StatusFor(0.7))
	assert.Equal(t, StatusMatched, StatusFor(1))
	assert.Equal(t, StatusPartial, StatusFor(0.6999))
	assert.Equal(t, StatusPartial, StatusFor(0.4))
	assert.Equal(t, StatusUncertain, StatusFor(0.3999))
	assert.Equal(t, StatusUncertain, StatusFor(0))
}

func TestSuggestQuantity(t *testing.T) {
	tests := []struct {
		name string
		ing  common.Ingredient
		want int
	}{
		{"no quantity", common.Ingredient{Name: "zout"}, 1},
		{"large grams", common.Ingredient{Name: "bloem", Quantity: common.Float64Ptr(750), Unit: "gram"}, 2},
		{"large ml", common.Ingredient{Name: "melk", Quantity: common.Float64Ptr(501), Unit: "ML"}, 2},
		{"exactly 500", common.Ingredient{Name: "bloem", Quantity: common.Float64Ptr(500), Unit: "g"}, 1},
		{"large count", common.Ingredient{Name: "eieren", Quantity: common.Float64Ptr(600), Unit: "stuks"}, 1},
		{"kilograms", common.Ingredient{Name: "aardappelen", Quantity: common.Float64Ptr(1000), Unit: "kg"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestQuantity(tt.ing))
		})
	}
}

func TestDecide(t *testing.T) {
	ing := common.Ingredient{Name: "tomaten"}
	var ranked []Candidate
	for i, score := range []float64{0.55, 0.5, 0.4, 0.3, 0.2, 0.1, 0.05} {
		ranked = append(ranked, Candidate{Product: catalog.Product{ID: string(rune('a' + i))}, Score: score})
	}

	res, ok := Decide(ing, ranked, 5)
	require.True(t, ok)
	assert.Len(t, res.RankedMatches, 5)
	assert.Equal(t, "a", res.Product.ID)
	assert.Equal(t, 0.55, res.BestConfidence)
	assert.Equal(t, StatusPartial, res.Status)
	assert.True(t, res.NeedsReview)
	assert.False(t, res.AutoAddEligible())

	_, ok = Decide(ing, nil, 5)
	assert.False(t, ok)
}

func TestDecide_Matched(t *testing.T) {
	res, ok := Decide(common.Ingredient{Name: "melk"}, []Candidate{
		{Product: catalog.Product{ID: "m1", Name: "Melk"}, Score: 0.7},
	}, 5)
	require.True(t, ok)
	assert.Equal(t, StatusMatched, res.Status)
	assert.False(t, res.NeedsReview)
	assert.True(t, res.AutoAddEligible())
}
