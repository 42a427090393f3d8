package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_TrimsSurroundingPunctuation(t *testing.T) {
	assert.Equal(t, []string{"tomaten", "half-om-half", "ui"}, tokenize("tomaten, half-om-half (ui)"))
	assert.Empty(t, tokenize(" , ; "))
}

func TestScore_TrailingPunctuation(t *testing.T) {
	assert.InDelta(t, 0.7, Score("tomaten,", "Tomaten 500g"), 1e-9)
}
