package api

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"

	"storefront/internal/domain"
)

type productDTO struct {
	ID            int      `json:"id"`
	ProductID     int      `json:"product_id"`
	Name          string   `json:"name"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	Tags          []string `json:"tags"`
	Price         float64  `json:"price"`
	AverageRating *float64 `json:"average_rating"`
	ImageURL      *string  `json:"image_url"`
}

type userDTO struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
}

type recommendationDTO struct {
	Product     productDTO         `json:"product"`
	Score       float64            `json:"score"`
	Explanation *string            `json:"explanation"`
	Factors     map[string]float64 `json:"factors"`
}

type interactionDTO struct {
	UserID          int      `json:"user_id"`
	ProductID       int      `json:"product_id"`
	InteractionType string   `json:"interaction_type"`
	Rating          *float64 `json:"rating"`
}

type errorDTO struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
}

var errNotCollection = errors.New("body is not a JSON array")

// decodeCollection accepts a bare JSON array or an object holding the array
// under field (e.g. {"products": [...]}).
func decodeCollection[T any](body []byte, field string) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errNotCollection
	}
	switch body[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		return out, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, err
		}
		raw, ok := wrapper[field]
		if !ok {
			return nil, errNotCollection
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			return nil, errNotCollection
		}
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, errNotCollection
	}
}

// errorDetail pulls a human-readable message from a backend error body.
func errorDetail(body []byte) string {
	var e errorDTO
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if s, ok := e.Detail.(string); ok && s != "" {
		return s
	}
	return e.Message
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (p productDTO) toDomain() domain.Product {
	id := p.ID
	if id == 0 {
		id = p.ProductID
	}
	var tags []string
	for _, t := range p.Tags {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return domain.Product{
		ID:            id,
		Name:          p.Name,
		Description:   deref(p.Description),
		Category:      deref(p.Category),
		Tags:          tags,
		Price:         p.Price,
		AverageRating: p.AverageRating,
		ImageURL:      deref(p.ImageURL),
	}
}

func (u userDTO) toDomain() domain.User {
	name := u.Name
	if name == "" {
		name = u.Username
	}
	return domain.User{ID: u.ID, Name: name, Email: deref(u.Email)}
}

func (r recommendationDTO) toDomain() domain.Recommendation {
	return domain.Recommendation{
		Product:     r.Product.toDomain(),
		Score:       r.Score,
		Explanation: deref(r.Explanation),
		Factors:     r.Factors,
	}
}
