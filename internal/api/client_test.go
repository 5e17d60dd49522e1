package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/", MaxRetries: retries, Timeout: time.Second})
	require.NoError(t, err)
	c.retryDelay = func(int) time.Duration { return 0 }
	return c
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestListProducts(t *testing.T) {
	t.Run("BareArray", func(t *testing.T) {
		c := newTestClient(t, respond(200, `[
			{"id": 1, "name": "Lamp", "description": null, "category": "Home", "tags": ["light", ""], "price": 19.5, "average_rating": 4.2, "image_url": "http://img/1.png"},
			{"id": 2, "name": "Mug", "price": 7, "tags": null}
		]`), 0)

		ps, err := c.ListProducts(t.Context())
		require.NoError(t, err)
		require.Len(t, ps, 2)
		assert.Equal(t, 1, ps[0].ID)
		assert.Equal(t, "Home", ps[0].Category)
		assert.Equal(t, []string{"light"}, ps[0].Tags)
		require.NotNil(t, ps[0].AverageRating)
		assert.Equal(t, 4.2, *ps[0].AverageRating)
		assert.Empty(t, ps[1].Category)
		assert.Nil(t, ps[1].Tags)
		assert.Nil(t, ps[1].AverageRating)
	})

	t.Run("WrappedObject", func(t *testing.T) {
		c := newTestClient(t, respond(200, `{"total": 1, "products": [{"id": 9, "name": "Desk", "price": 200}]}`), 0)
		ps, err := c.ListProducts(t.Context())
		require.NoError(t, err)
		require.Len(t, ps, 1)
		assert.Equal(t, 9, ps[0].ID)
	})

	t.Run("NotACollection", func(t *testing.T) {
		for _, body := range []string{`{"total": 0}`, `"oops"`, ``, `{"products": 5}`, `[{"id": "x"}]`} {
			c := newTestClient(t, respond(200, body), 0)
			ps, err := c.ListProducts(t.Context())
			assert.Nil(t, ps, body)
			assert.True(t, IsKind(err, KindShape), "body %q: %v", body, err)
		}
	})

	t.Run("ServerErrorDetail", func(t *testing.T) {
		c := newTestClient(t, respond(404, `{"detail": "No products found"}`), 3)
		_, err := c.ListProducts(t.Context())
		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, KindServer, apiErr.Kind)
		assert.Equal(t, 404, apiErr.Status)
		assert.Equal(t, "list products: No products found", apiErr.Error())
	})

	t.Run("RetriesServerErrors", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				respond(503, `{"message": "warming up"}`)(w, r)
				return
			}
			respond(200, `[]`)(w, r)
		}), 2)

		ps, err := c.ListProducts(t.Context())
		require.NoError(t, err)
		assert.Empty(t, ps)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("Paged", func(t *testing.T) {
		var queries []string
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/products", r.URL.Path)
			queries = append(queries, r.URL.RawQuery)
			skip, err := strconv.Atoi(r.URL.Query().Get("skip"))
			require.NoError(t, err)
			n := min(productPageSize, 130-skip)
			items := make([]map[string]any, n)
			for i := range items {
				items[i] = map[string]any{"id": skip + i + 1, "name": fmt.Sprintf("p%d", skip+i+1), "price": 1}
			}
			body, err := json.Marshal(map[string]any{"total": 130, "products": items})
			require.NoError(t, err)
			respond(200, string(body))(w, r)
		}), 0)

		ps, err := c.ListProducts(t.Context())
		require.NoError(t, err)
		require.Len(t, ps, 130)
		assert.Equal(t, 1, ps[0].ID)
		assert.Equal(t, 130, ps[129].ID)
		assert.Equal(t, []string{"skip=0&limit=100", "skip=100&limit=100"}, queries)
	})

	t.Run("SkipIgnored", func(t *testing.T) {
		items := make([]map[string]any, productPageSize)
		for i := range items {
			items[i] = map[string]any{"id": i + 1, "name": "p", "price": 1}
		}
		body, err := json.Marshal(items)
		require.NoError(t, err)
		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			respond(200, string(body))(w, r)
		}), 0)

		ps, err := c.ListProducts(t.Context())
		require.NoError(t, err)
		assert.Len(t, ps, productPageSize)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Transport", func(t *testing.T) {
		srv := httptest.NewServer(respond(200, `[]`))
		srv.Close()
		c, err := NewClient(Config{BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = c.ListProducts(t.Context())
		assert.True(t, IsKind(err, KindTransport), "%v", err)
	})
}

func TestListUsers(t *testing.T) {
	c := newTestClient(t, respond(200, `[
		{"id": 1, "name": "ann", "username": "ann", "email": "ann@example.com"},
		{"id": 2, "username": "bob", "email": null}
	]`), 0)
	users, err := c.ListUsers(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []domain.User{
		{ID: 1, Name: "ann", Email: "ann@example.com"},
		{ID: 2, Name: "bob"},
	}, users)
}

func TestUserRecommendations(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		respond(200, `{"user_id": 3, "recommendations": [
			{"product": {"product_id": 11, "name": "Kettle", "price": 30, "category": "Kitchen"},
			 "score": 0.82, "explanation": null, "factors": {"collaborative_score": 0.5, "mystery": 0.1}}
		]}`)(w, r)
	}), 0)

	recs, err := c.UserRecommendations(t.Context(), 3, 4)
	require.NoError(t, err)
	assert.Equal(t, "/recommendations/user/3?limit=4", gotPath)
	require.Len(t, recs, 1)
	assert.Equal(t, 11, recs[0].Product.ID)
	assert.Equal(t, 0.82, recs[0].Score)
	assert.Empty(t, recs[0].Explanation)
	assert.Equal(t, 0.1, recs[0].Factors["mystery"])
}

func TestRecordInteraction(t *testing.T) {
	t.Run("Payload", func(t *testing.T) {
		var got map[string]any
		var method, reqID string
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method + " " + r.URL.Path
			reqID = r.Header.Get("X-Request-ID")
			_ = json.NewDecoder(r.Body).Decode(&got)
			respond(201, `{"id": 1, "message": "Interaction logged successfully"}`)(w, r)
		}), 0)

		rating := 5.0
		err := c.RecordInteraction(t.Context(), domain.Interaction{UserID: 1, ProductID: 5, Kind: domain.InteractionPurchase, Rating: &rating})
		require.NoError(t, err)
		assert.Equal(t, "POST /interactions", method)
		assert.NotEmpty(t, reqID)
		assert.Equal(t, map[string]any{"user_id": 1.0, "product_id": 5.0, "interaction_type": "purchase", "rating": 5.0}, got)
	})

	t.Run("NullRating", func(t *testing.T) {
		var raw []byte
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ = io.ReadAll(r.Body)
			respond(201, `{}`)(w, r)
		}), 0)
		require.NoError(t, c.RecordInteraction(t.Context(), domain.Interaction{UserID: 1, ProductID: 2, Kind: domain.InteractionCart}))
		assert.JSONEq(t, `{"user_id":1,"product_id":2,"interaction_type":"cart","rating":null}`, string(raw))
	})

	t.Run("NoRetry", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			respond(500, `{"detail": "Error creating interaction"}`)(w, r)
		}), 3)
		err := c.RecordInteraction(t.Context(), domain.Interaction{UserID: 1, ProductID: 2, Kind: domain.InteractionLike})
		require.Error(t, err)
		assert.Equal(t, "record interaction: Error creating interaction", err.Error())
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respond(502, ``)(w, r)
	}), 0)

	for i := 0; i < 5; i++ {
		_, err := c.ListUsers(context.Background())
		require.True(t, IsKind(err, KindServer))
	}
	_, err := c.ListUsers(context.Background())
	assert.True(t, IsKind(err, KindTransport), "%v", err)
	assert.Contains(t, err.Error(), "temporarily unavailable")
	assert.Equal(t, int32(5), calls.Load())
}
