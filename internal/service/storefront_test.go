package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/interaction"
	"storefront/internal/store/memory"
	"storefront/internal/usercontext"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListProducts(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]domain.Product)
	return p, args.Error(1)
}

func (m *MockAPI) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).([]domain.User)
	return u, args.Error(1)
}

func (m *MockAPI) RecordInteraction(ctx context.Context, in domain.Interaction) error {
	return m.Called(ctx, in).Error(0)
}

func (m *MockAPI) UserRecommendations(ctx context.Context, userID, limit int) ([]domain.Recommendation, error) {
	args := m.Called(ctx, userID, limit)
	r, _ := args.Get(0).([]domain.Recommendation)
	return r, args.Error(1)
}

type manualTimer struct{}

func (manualTimer) Stop() bool { return true }

func rating(v float64) *float64 { return &v }

var (
	products = []domain.Product{
		{ID: 1, Name: "Trail Shoe", Category: "Footwear", Tags: []string{"outdoor"}, Price: 89.5, AverageRating: rating(4.2)},
		{ID: 2, Name: "apron", Category: "Kitchen", Tags: []string{"cotton"}, Price: 15},
		{ID: 3, Name: "Backpack", Category: "Outdoor", Tags: []string{"outdoor", "travel"}, Price: 60, AverageRating: rating(4.8)},
	}
	users = []domain.User{{ID: 1, Name: "ann"}, {ID: 2, Name: "bob"}}
)

func newStorefront(t *testing.T, api *MockAPI) *Storefront {
	t.Helper()
	uc := usercontext.New(api, memory.NewStorage())
	rec := interaction.NewRecorder(api, uc, interaction.WithScheduler(func(time.Duration, func()) interaction.Timer {
		return manualTimer{}
	}))
	t.Cleanup(rec.Close)
	return NewStorefront(api, uc, rec, Options{RecommendationLimit: 3, ExplanationLimit: 10})
}

func ids(ps []domain.Product) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestBootstrap(t *testing.T) {
	t.Run("Loaded", func(t *testing.T) {
		api := new(MockAPI)
		api.On("ListProducts", mock.Anything).Return(products, nil)
		api.On("ListUsers", mock.Anything).Return(users, nil)
		s := newStorefront(t, api)

		require.NoError(t, s.Bootstrap(t.Context()))
		assert.Equal(t, []int{2, 3, 1}, ids(s.Visible()), "default sort is name ascending")
		assert.Equal(t, []string{"Footwear", "Kitchen", "Outdoor"}, s.Facets().Categories)
		u, ok := s.SelectedUser()
		require.True(t, ok)
		assert.Equal(t, 1, u.ID)
	})

	t.Run("Degrades", func(t *testing.T) {
		api := new(MockAPI)
		api.On("ListProducts", mock.Anything).Return(nil, errors.New("backend unreachable"))
		api.On("ListUsers", mock.Anything).Return(nil, errors.New("backend unreachable"))
		s := newStorefront(t, api)

		err := s.Bootstrap(t.Context())
		require.Error(t, err)
		assert.Empty(t, s.Visible())
		assert.NotNil(t, s.Visible())
		assert.Equal(t, catalog.DefaultPriceCeiling, s.Facets().PriceMax)
		_, ok := s.SelectedUser()
		assert.False(t, ok)
	})

	t.Run("ReloadFailureEmptiesCatalog", func(t *testing.T) {
		api := new(MockAPI)
		api.On("ListProducts", mock.Anything).Return(products, nil).Once()
		api.On("ListProducts", mock.Anything).Return(nil, errors.New("boom")).Once()
		s := newStorefront(t, api)

		require.NoError(t, s.LoadProducts(t.Context()))
		require.Len(t, s.Products(), 3)
		require.Error(t, s.LoadProducts(t.Context()))
		assert.Empty(t, s.Products())
	})
}

func TestFilterAndSort(t *testing.T) {
	api := new(MockAPI)
	api.On("ListProducts", mock.Anything).Return(products, nil)
	s := newStorefront(t, api)
	require.NoError(t, s.LoadProducts(t.Context()))

	s.ToggleTag("outdoor")
	assert.Equal(t, []int{3, 1}, ids(s.Visible()))

	s.CycleSortKey()
	assert.Equal(t, catalog.SortByPrice, s.Sort().Key)
	assert.Equal(t, []int{3, 1}, ids(s.Visible()))
	s.ToggleDirection()
	assert.Equal(t, []int{1, 3}, ids(s.Visible()))

	require.NoError(t, s.SetPriceRange(0, 60))
	assert.Equal(t, []int{3}, ids(s.Visible()))
	assert.ErrorIs(t, s.SetPriceRange(70, 10), catalog.ErrInvalidPriceRange)
	assert.Equal(t, 60.0, s.Filter().Price.Max, "invalid range keeps the previous one")

	s.SetSearch("APRON")
	assert.Empty(t, s.Visible())

	s.ClearFilters()
	assert.True(t, s.Filter().IsZero())
	assert.Equal(t, catalog.SortState{}, s.Sort())
	assert.Equal(t, []int{2, 3, 1}, ids(s.Visible()))
	s.ClearFilters()
	assert.Equal(t, []int{2, 3, 1}, ids(s.Visible()))
}

func TestInteractions(t *testing.T) {
	t.Run("NoUser", func(t *testing.T) {
		api := new(MockAPI)
		s := newStorefront(t, api)
		_, err := s.Trigger(t.Context(), 1, domain.InteractionCart)
		assert.ErrorIs(t, err, interaction.ErrNoUserSelected)
		assert.Equal(t, interaction.Idle, s.InteractionState(1, domain.InteractionCart).State)
		api.AssertNotCalled(t, "RecordInteraction", mock.Anything, mock.Anything)
	})

	t.Run("RecordsForSelectedUser", func(t *testing.T) {
		api := new(MockAPI)
		api.On("ListUsers", mock.Anything).Return(users, nil)
		api.On("RecordInteraction", mock.Anything, domain.Interaction{UserID: 2, ProductID: 3, Kind: domain.InteractionLike}).Return(nil).Once()
		s := newStorefront(t, api)
		require.NoError(t, s.ReloadUsers(t.Context()))
		_, err := s.NextUser()
		require.NoError(t, err)

		_, err = s.Trigger(t.Context(), 3, domain.InteractionLike)
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return s.InteractionState(3, domain.InteractionLike).State == interaction.Success
		}, time.Second, time.Millisecond)
		assert.True(t, s.InteractionState(3, domain.InteractionLike).Active)
		api.AssertExpectations(t)
	})
}

func TestUsers(t *testing.T) {
	api := new(MockAPI)
	s := newStorefront(t, api)
	_, err := s.NextUser()
	assert.ErrorIs(t, err, ErrNoUsers)

	api.On("ListUsers", mock.Anything).Return(users, nil)
	require.NoError(t, s.ReloadUsers(t.Context()))
	_, err = s.SelectUser(9)
	assert.ErrorIs(t, err, usercontext.ErrUnknownUser)
	u, err := s.SelectUser(2)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Name)
	assert.Len(t, s.Users(), 2)
}

func TestRecommendations(t *testing.T) {
	t.Run("NoUser", func(t *testing.T) {
		s := newStorefront(t, new(MockAPI))
		_, err := s.Recommendations(t.Context())
		assert.ErrorIs(t, err, interaction.ErrNoUserSelected)
	})

	t.Run("Presented", func(t *testing.T) {
		api := new(MockAPI)
		api.On("ListUsers", mock.Anything).Return(users, nil)
		api.On("UserRecommendations", mock.Anything, 1, 3).Return([]domain.Recommendation{
			{Product: products[0], Score: 0.65, Explanation: "Because you liked boots"},
		}, nil)
		s := newStorefront(t, api)
		require.NoError(t, s.ReloadUsers(t.Context()))

		cards, err := s.Recommendations(t.Context())
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, 65, cards[0].Percent)
		assert.True(t, cards[0].Truncated)
		assert.Equal(t, "Because yo…", cards[0].Explanation)
	})

	t.Run("Failure", func(t *testing.T) {
		api := new(MockAPI)
		api.On("ListUsers", mock.Anything).Return(users, nil)
		api.On("UserRecommendations", mock.Anything, 1, 3).Return(nil, errors.New("server returned 500"))
		s := newStorefront(t, api)
		require.NoError(t, s.ReloadUsers(t.Context()))

		cards, err := s.Recommendations(t.Context())
		require.Error(t, err)
		assert.Empty(t, cards)
	})
}
