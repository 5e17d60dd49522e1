package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

var _ domain.CatalogAPI = (*Client)(nil)

// Client is the storefront's REST client for the recommendation backend.
// GET requests are retried on transport errors and 429/5xx; interaction
// posts are never retried.
type Client struct {
	baseURL    string
	client     *http.Client
	cb         *gobreaker.CircuitBreaker[[]byte]
	maxRetries int
	retryDelay func(attempt int) time.Duration
}

// Config configures the REST client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// NewClient creates a new REST client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api: empty base URL")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("api: bad base URL: %w", err)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: t}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     hc,
		cb:         newBreaker("storefront-api"),
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
	}, nil
}

// newBreaker opens after 5 consecutive transport/5xx failures and tries
// again after 15s. 4xx responses do not count as failures.
func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *Error
			if errors.As(err, &apiErr) && apiErr.Kind == KindServer {
				return apiErr.Status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

// productPageSize is the largest page GET /products serves.
const productPageSize = 100

// maxProductPages bounds paging against a backend that ignores skip.
const maxProductPages = 1000

// ListProducts fetches every page of GET /products?skip=N&limit=100. Paging
// stops at the first short page or at a page whose first product was already
// seen.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "list products"
	var out []domain.Product
	seen := make(map[int]struct{})
	for page := 0; page < maxProductPages; page++ {
		path := fmt.Sprintf("/products?skip=%d&limit=%d", page*productPageSize, productPageSize)
		body, err := c.get(ctx, op, path)
		if err != nil {
			return nil, err
		}
		dtos, err := decodeCollection[productDTO](body, "products")
		if err != nil {
			return nil, shapeError(op, err)
		}
		if len(dtos) > 0 {
			if _, dup := seen[dtos[0].toDomain().ID]; dup {
				break
			}
		}
		for _, d := range dtos {
			p := d.toDomain()
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
		if len(dtos) < productPageSize {
			break
		}
	}
	if out == nil {
		out = []domain.Product{}
	}
	return out, nil
}

// ListUsers fetches GET /users.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	const op = "list users"
	body, err := c.get(ctx, op, "/users")
	if err != nil {
		return nil, err
	}
	dtos, err := decodeCollection[userDTO](body, "users")
	if err != nil {
		return nil, shapeError(op, err)
	}
	out := make([]domain.User, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// UserRecommendations fetches GET /recommendations/user/{id}?limit=N.
func (c *Client) UserRecommendations(ctx context.Context, userID, limit int) ([]domain.Recommendation, error) {
	const op = "get recommendations"
	path := fmt.Sprintf("/recommendations/user/%d?limit=%d", userID, limit)
	body, err := c.get(ctx, op, path)
	if err != nil {
		return nil, err
	}
	dtos, err := decodeCollection[recommendationDTO](body, "recommendations")
	if err != nil {
		return nil, shapeError(op, err)
	}
	out := make([]domain.Recommendation, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// RecordInteraction posts POST /interactions. The response body is ignored.
func (c *Client) RecordInteraction(ctx context.Context, in domain.Interaction) error {
	const op = "record interaction"
	payload := interactionDTO{
		UserID:          in.UserID,
		ProductID:       in.ProductID,
		InteractionType: string(in.Kind),
		Rating:          in.Rating,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return shapeError(op, err)
	}
	_, err = c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, op, http.MethodPost, "/interactions", data)
	})
	return c.breakerError(op, err)
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := c.cb.Execute(func() ([]byte, error) {
			return c.do(ctx, op, http.MethodGet, path, nil)
		})
		if err == nil {
			return body, nil
		}
		if attempt >= c.maxRetries || !retryable(err) {
			return nil, c.breakerError(op, err)
		}
		select {
		case <-ctx.Done():
			return nil, transportError(op, ctx.Err())
		case <-time.After(c.retryDelay(attempt)):
		}
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, transportError(op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logging.Warn().Err(err).Str("method", method).Str("path", path).Str("request_id", reqID).Msg("request failed")
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	logging.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Str("request_id", reqID).Dur("took", time.Since(start)).Msg("request done")
	if err != nil {
		return nil, transportError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serverError(op, resp.StatusCode, errorDetail(data))
	}
	return data, nil
}

// breakerError maps breaker rejections onto transport errors.
func (c *Client) breakerError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{
			Kind:    KindTransport,
			Op:      op,
			Message: fmt.Sprintf("%s: backend temporarily unavailable", op),
			Err:     err,
		}
	}
	return err
}

func retryable(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindTransport:
		return !errors.Is(err, context.Canceled)
	case KindServer:
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	return false
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// String describes the client for logs.
func (c *Client) String() string {
	return "api(" + c.baseURL + ", retries=" + strconv.Itoa(c.maxRetries) + ")"
}
