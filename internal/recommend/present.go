// Package recommend turns backend recommendation payloads into display-ready
// values: a clamped percentage, a tier, factor bars and a bounded explanation.
package recommend

import (
	"math"
	"sort"

	"github.com/rivo/uniseg"

	"storefront/internal/domain"
)

// DefaultExplanationLimit is the explanation length, in characters, shown
// before truncation.
const DefaultExplanationLimit = 150

// Ellipsis marks a truncated explanation.
const Ellipsis = "…"

// Tier buckets a score for display.
type Tier int

const (
	Low Tier = iota
	Medium
	High
)

func (t Tier) String() string {
	switch t {
	case High:
		return "High"
	case Medium:
		return "Medium"
	default:
		return "Low"
	}
}

// Clamp bounds a score to [0, 1]. NaN becomes 0.
func Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}

// Percent returns round(clamp(score, 0, 1) * 100).
func Percent(score float64) int {
	return int(math.Round(Clamp(score) * 100))
}

// TierOf classifies a score: below 0.30 is Low, below 0.70 is Medium,
// anything else High.
func TierOf(score float64) Tier {
	s := Clamp(score)
	switch {
	case s < 0.30:
		return Low
	case s < 0.70:
		return Medium
	default:
		return High
	}
}

type factorMeta struct {
	label string
	icon  string
	order int
}

var factors = map[string]factorMeta{
	"collaborative_score": {"Similar users", "👥", 0},
	"collaborative":       {"Similar users", "👥", 0},
	"content_based_score": {"Matches your taste", "🎯", 1},
	"content_based":       {"Matches your taste", "🎯", 1},
	"combined_base_score": {"Combined match", "🔗", 2},
	"category_boost":      {"Favourite category", "🏷", 3},
	"category_match":      {"Favourite category", "🏷", 3},
	"popularity":          {"Popular", "🔥", 4},
	"final_score":         {"Overall", "⭐", 5},
}

const (
	genericIcon  = "•"
	genericOrder = 100
)

// Factor is one bar in a recommendation's breakdown.
type Factor struct {
	Key     string
	Label   string
	Icon    string
	Weight  float64
	Percent int
	Known   bool
}

// Fill is the bar length as a fraction in [0, 1]. Percent itself is not
// clamped since weights are not guaranteed to be bounded.
func (f Factor) Fill() float64 {
	return Clamp(f.Weight)
}

// Describe looks up the label and icon for a factor key. Unknown keys get
// a generic icon and a label derived from the key.
func Describe(key string) (label, icon string, known bool) {
	if m, ok := factors[key]; ok {
		return m.label, m.icon, true
	}
	return humanize(key), genericIcon, false
}

// FactorBars renders each factor weight as round(weight * 100). Known
// factors come first in a fixed order, then unknown ones by key.
func FactorBars(weights map[string]float64) []Factor {
	out := make([]Factor, 0, len(weights))
	for k, w := range weights {
		if math.IsNaN(w) {
			w = 0
		}
		label, icon, known := Describe(k)
		out = append(out, Factor{
			Key:     k,
			Label:   label,
			Icon:    icon,
			Weight:  w,
			Percent: int(math.Round(w * 100)),
			Known:   known,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := orderOf(out[i].Key), orderOf(out[j].Key)
		if oi != oj {
			return oi < oj
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func orderOf(key string) int {
	if m, ok := factors[key]; ok {
		return m.order
	}
	return genericOrder
}

func humanize(key string) string {
	if key == "" {
		return "Other"
	}
	b := []rune(key)
	for i, r := range b {
		if r == '_' || r == '-' {
			b[i] = ' '
		}
	}
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// Truncate shortens text to at most limit user-perceived characters
// (grapheme clusters), appending Ellipsis when it cuts. It never splits a
// multi-byte character. A non-positive limit returns text unchanged.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 || uniseg.GraphemeClusterCount(text) <= limit {
		return text, false
	}
	g := uniseg.NewGraphemes(text)
	n := 0
	end := 0
	for g.Next() {
		if n == limit {
			break
		}
		_, end = g.Positions()
		n++
	}
	return text[:end] + Ellipsis, true
}

// Card is a recommendation ready for rendering.
type Card struct {
	Product     domain.Product
	Score       float64
	Percent     int
	Tier        Tier
	Explanation string
	Truncated   bool
	// Full is the untruncated explanation, shown on expand.
	Full    string
	Factors []Factor
}

// Present builds a Card, truncating the explanation to limit characters.
func Present(rec domain.Recommendation, limit int) Card {
	text, cut := Truncate(rec.Explanation, limit)
	return Card{
		Product:     rec.Product,
		Score:       rec.Score,
		Percent:     Percent(rec.Score),
		Tier:        TierOf(rec.Score),
		Explanation: text,
		Truncated:   cut,
		Full:        rec.Explanation,
		Factors:     FactorBars(rec.Factors),
	}
}

// PresentAll maps Present over recs.
func PresentAll(recs []domain.Recommendation, limit int) []Card {
	out := make([]Card, len(recs))
	for i, r := range recs {
		out[i] = Present(r, limit)
	}
	return out
}
