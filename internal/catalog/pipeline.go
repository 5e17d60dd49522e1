package catalog

import (
	"cmp"
	"errors"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
)

// ErrInvalidPriceRange is returned for a negative bound or min > max.
var ErrInvalidPriceRange = errors.New("invalid price range: need 0 <= min <= max")

// SortKey selects the field products are ordered by.
type SortKey int

const (
	SortByName SortKey = iota
	SortByPrice
	SortByRating
)

func (k SortKey) String() string {
	switch k {
	case SortByPrice:
		return "price"
	case SortByRating:
		return "rating"
	default:
		return "name"
	}
}

// Next cycles name -> price -> rating -> name.
func (k SortKey) Next() SortKey {
	return (k + 1) % 3
}

// Direction is the sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortState is the active sort. The zero value sorts by name ascending,
// which is also the default order.
type SortState struct {
	Key       SortKey
	Direction Direction
}

// PriceRange is an inclusive price constraint. It only applies when Bounded.
type PriceRange struct {
	Min     float64 `validate:"gte=0"`
	Max     float64 `validate:"gtefield=Min"`
	Bounded bool
}

// NewPriceRange validates and returns a bounded range.
func NewPriceRange(lo, hi float64) (PriceRange, error) {
	r := PriceRange{Min: lo, Max: hi, Bounded: true}
	if err := priceValidator.Struct(r); err != nil {
		return PriceRange{}, ErrInvalidPriceRange
	}
	return r, nil
}

var priceValidator = validator.New(validator.WithRequiredStructEnabled())

// FilterState is the set of active filters. The zero value matches every
// product.
type FilterState struct {
	Search     string
	Categories map[string]struct{}
	Tags       map[string]struct{}
	Price      PriceRange
}

// IsZero reports whether no filter is active.
func (f FilterState) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.Categories) == 0 &&
		len(f.Tags) == 0 && !f.Price.Bounded
}

// WithCategory returns a copy of f with category c toggled.
func (f FilterState) WithCategory(c string) FilterState {
	f.Categories = toggle(f.Categories, c)
	return f
}

// WithTag returns a copy of f with tag t toggled.
func (f FilterState) WithTag(t string) FilterState {
	f.Tags = toggle(f.Tags, t)
	return f
}

func toggle(set map[string]struct{}, v string) map[string]struct{} {
	out := make(map[string]struct{}, len(set)+1)
	for k := range set {
		out[k] = struct{}{}
	}
	if _, ok := out[v]; ok {
		delete(out, v)
	} else {
		out[v] = struct{}{}
	}
	return out
}

// Apply returns the visible products: products matching f, ordered by s.
// Equal sort keys keep their input order. products is not modified.
func Apply(products []domain.Product, f FilterState, s SortState) []domain.Product {
	return Sort(Filter(products, f), s)
}

// Filter returns the products matching every active clause of f.
func Filter(products []domain.Product, f FilterState) []domain.Product {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if matches(p, f, needle) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p domain.Product, f FilterState, needle string) bool {
	if needle != "" &&
		!strings.Contains(strings.ToLower(p.Name), needle) &&
		!strings.Contains(strings.ToLower(p.Description), needle) &&
		!strings.Contains(strings.ToLower(p.Category), needle) {
		return false
	}
	if len(f.Categories) > 0 {
		if _, ok := f.Categories[strings.TrimSpace(p.Category)]; !ok {
			return false
		}
	}
	if len(f.Tags) > 0 && !anyTag(p.Tags, f.Tags) {
		return false
	}
	if f.Price.Bounded && (p.Price < f.Price.Min || p.Price > f.Price.Max) {
		return false
	}
	return true
}

func anyTag(tags []string, want map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := want[strings.TrimSpace(t)]; ok {
			return true
		}
	}
	return false
}

// Sort returns a stably sorted copy of products.
func Sort(products []domain.Product, s SortState) []domain.Product {
	out := slices.Clone(products)
	if out == nil {
		out = []domain.Product{}
	}
	compare := comparator(s.Key)
	if s.Direction == Descending {
		asc := compare
		compare = func(a, b domain.Product) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

func comparator(k SortKey) func(a, b domain.Product) int {
	switch k {
	case SortByPrice:
		return func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) }
	case SortByRating:
		return func(a, b domain.Product) int { return cmp.Compare(a.Rating(), b.Rating()) }
	default:
		return func(a, b domain.Product) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	}
}
