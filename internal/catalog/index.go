package catalog

import (
	"slices"
	"strings"

	"storefront/internal/domain"
)

// DefaultPriceCeiling is the upper price bound reported for an empty catalog.
const DefaultPriceCeiling = 1000.0

// Facets is the filter vocabulary derived from a product set.
type Facets struct {
	Categories []string
	Tags       []string
	PriceMin   float64
	PriceMax   float64
}

// BuildFacets collects distinct non-empty categories and tags (sorted) and the
// price bounds of products. PriceMin is always 0.
func BuildFacets(products []domain.Product) Facets {
	f := Facets{PriceMax: DefaultPriceCeiling}
	if len(products) == 0 {
		return f
	}

	categories := make(map[string]struct{})
	tags := make(map[string]struct{})
	maxPrice := 0.0
	for _, p := range products {
		if c := strings.TrimSpace(p.Category); c != "" {
			categories[c] = struct{}{}
		}
		for _, t := range p.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags[t] = struct{}{}
			}
		}
		if p.Price > maxPrice {
			maxPrice = p.Price
		}
	}
	f.Categories = sortedKeys(categories)
	f.Tags = sortedKeys(tags)
	f.PriceMax = maxPrice
	return f
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
