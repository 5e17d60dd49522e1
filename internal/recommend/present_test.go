package recommend

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestPercentAndTier(t *testing.T) {
	tests := []struct {
		score   float64
		percent int
		tier    Tier
	}{
		{0.0, 0, Low},
		{0.29, 29, Low},
		{0.30, 30, Medium},
		{0.65, 65, Medium},
		{0.70, 70, High},
		{1.0, 100, High},
		{1.4, 100, High},
		{-0.2, 0, Low},
		{math.NaN(), 0, Low},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.percent, Percent(tt.score), "percent of %v", tt.score)
		assert.Equal(t, tt.tier, TierOf(tt.score), "tier of %v", tt.score)
	}
	assert.Equal(t, "Medium", TierOf(0.65).String())
}

func TestFactorBars(t *testing.T) {
	bars := FactorBars(map[string]float64{
		"final_score":         0.81,
		"freshness_bonus":     0.125,
		"collaborative_score": 0.6,
		"category_boost":      1.3,
	})
	require.Len(t, bars, 4)

	keys := make([]string, len(bars))
	for i, b := range bars {
		keys[i] = b.Key
	}
	assert.Equal(t, []string{"collaborative_score", "category_boost", "final_score", "freshness_bonus"}, keys)

	assert.Equal(t, 60, bars[0].Percent)
	assert.Equal(t, "Similar users", bars[0].Label)
	assert.Equal(t, 130, bars[1].Percent)
	assert.Equal(t, 1.0, bars[1].Fill())

	unknown := bars[3]
	assert.False(t, unknown.Known)
	assert.Equal(t, "Freshness bonus", unknown.Label)
	assert.Equal(t, genericIcon, unknown.Icon)
	assert.Equal(t, 13, unknown.Percent)

	assert.Empty(t, FactorBars(nil))
}

func TestTruncate(t *testing.T) {
	t.Run("Short", func(t *testing.T) {
		out, cut := Truncate("fine", 150)
		assert.False(t, cut)
		assert.Equal(t, "fine", out)
	})

	t.Run("ASCII", func(t *testing.T) {
		out, cut := Truncate(strings.Repeat("a", 200), 150)
		assert.True(t, cut)
		assert.Equal(t, strings.Repeat("a", 150)+Ellipsis, out)
	})

	t.Run("MultiByte", func(t *testing.T) {
		text := strings.Repeat("é", 10) + strings.Repeat("日本", 5)
		out, cut := Truncate(text, 11)
		assert.True(t, cut)
		assert.True(t, utf8.ValidString(out))
		assert.Equal(t, strings.Repeat("é", 10)+"日"+Ellipsis, out)
	})

	t.Run("Emoji", func(t *testing.T) {
		// family emoji is one grapheme made of several code points
		text := "ab👨‍👩‍👧cd"
		out, cut := Truncate(text, 3)
		assert.True(t, cut)
		assert.Equal(t, "ab👨‍👩‍👧"+Ellipsis, out)
	})

	t.Run("NoLimit", func(t *testing.T) {
		out, cut := Truncate("anything", 0)
		assert.False(t, cut)
		assert.Equal(t, "anything", out)
	})
}

func TestPresent(t *testing.T) {
	rec := domain.Recommendation{
		Product:     domain.Product{ID: 4, Name: "Kettle"},
		Score:       0.65,
		Explanation: strings.Repeat("x", 160),
		Factors:     map[string]float64{"popularity": 0.4},
	}
	card := Present(rec, DefaultExplanationLimit)
	assert.Equal(t, 65, card.Percent)
	assert.Equal(t, Medium, card.Tier)
	assert.True(t, card.Truncated)
	assert.Equal(t, rec.Explanation, card.Full)
	require.Len(t, card.Factors, 1)
	assert.Equal(t, "Popular", card.Factors[0].Label)

	empty := Present(domain.Recommendation{Score: 1.4}, DefaultExplanationLimit)
	assert.Equal(t, 100, empty.Percent)
	assert.Equal(t, High, empty.Tier)
	assert.Empty(t, empty.Explanation)
	assert.False(t, empty.Truncated)

	assert.Len(t, PresentAll([]domain.Recommendation{rec, rec}, 10), 2)
}
