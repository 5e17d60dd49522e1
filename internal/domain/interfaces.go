package domain

import "context"

// Product is a catalog entry as served by the backend.
type Product struct {
	ID            int
	Name          string
	Description   string
	Category      string
	Tags          []string
	Price         float64
	AverageRating *float64
	ImageURL      string
}

// Rating returns the average rating, treating a missing rating as 0.
func (p Product) Rating() float64 {
	if p.AverageRating == nil {
		return 0
	}
	return *p.AverageRating
}

// User is a storefront shopper.
type User struct {
	ID    int
	Name  string
	Email string
}

// InteractionKind classifies a user action on a product.
type InteractionKind string

const (
	InteractionView     InteractionKind = "view"
	InteractionCart     InteractionKind = "cart"
	InteractionPurchase InteractionKind = "purchase"
	InteractionLike     InteractionKind = "like"
)

// Valid reports whether k is one of the known interaction kinds.
func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionView, InteractionCart, InteractionPurchase, InteractionLike:
		return true
	}
	return false
}

// Interaction is the payload recorded against the backend.
// Rating is only populated for purchases.
type Interaction struct {
	UserID    int
	ProductID int
	Kind      InteractionKind
	Rating    *float64
}

// Recommendation is a backend-scored product suggestion. Score is nominally
// in [0,1] but is not guaranteed to be bounded.
type Recommendation struct {
	Product     Product
	Score       float64
	Explanation string
	Factors     map[string]float64
}

// CatalogAPI is the subset of the backend REST API the storefront consumes.
type CatalogAPI interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListUsers(ctx context.Context) ([]User, error)
	RecordInteraction(ctx context.Context, in Interaction) error
	UserRecommendations(ctx context.Context, userID, limit int) ([]Recommendation, error)
}

// KVStore is a durable string key/value store. Set must be durable when it
// returns.
type KVStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}
