package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/interaction"
	"storefront/internal/logging"
	"storefront/internal/recommend"
	"storefront/internal/usercontext"
)

// ErrNoUsers is returned when cycling users with an empty user list.
var ErrNoUsers = errors.New("no users loaded")

// Options tunes the storefront service.
type Options struct {
	RecommendationLimit int
	ExplanationLimit    int
}

// Storefront coordinates the catalog, the active user and interaction
// recording. It owns the filter and sort state; the visible list is always
// recomputed from the loaded products. Safe for concurrent use.
type Storefront struct {
	api      domain.CatalogAPI
	users    *usercontext.Context
	recorder *interaction.Recorder
	opts     Options

	mu       sync.RWMutex
	products []domain.Product
	facets   catalog.Facets
	filter   catalog.FilterState
	sort     catalog.SortState
}

func NewStorefront(api domain.CatalogAPI, users *usercontext.Context, recorder *interaction.Recorder, opts Options) *Storefront {
	if opts.RecommendationLimit <= 0 {
		opts.RecommendationLimit = 5
	}
	if opts.ExplanationLimit <= 0 {
		opts.ExplanationLimit = recommend.DefaultExplanationLimit
	}
	return &Storefront{
		api:      api,
		users:    users,
		recorder: recorder,
		opts:     opts,
		facets:   catalog.BuildFacets(nil),
	}
}

// Bootstrap loads products and users and restores the saved selection.
// Failures leave the affected part empty; the joined error is for display.
func (s *Storefront) Bootstrap(ctx context.Context) error {
	perr := s.LoadProducts(ctx)
	uerr := s.users.LoadUsers(ctx)
	if u, ok := s.users.RestoreSelection(); ok {
		logging.Info().Int("user_id", u.ID).Msg("selection restored")
	}
	return errors.Join(perr, uerr)
}

// LoadProducts replaces the product set. On failure the catalog is empty.
func (s *Storefront) LoadProducts(ctx context.Context) error {
	const op = "Storefront.LoadProducts"

	products, err := s.api.ListProducts(ctx)
	if err != nil {
		products = nil
		logging.Warn().Err(err).Msg("failed to load products")
	}

	s.mu.Lock()
	s.products = products
	s.facets = catalog.BuildFacets(products)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logging.Debug().Int("products", len(products)).Msg("products loaded")
	return nil
}

// Products returns the full loaded product set.
func (s *Storefront) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...)
}

// Facets returns the facet vocabularies of the loaded products.
func (s *Storefront) Facets() catalog.Facets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facets
}

// Visible returns the filtered and sorted product list.
func (s *Storefront) Visible() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.Apply(s.products, s.filter, s.sort)
}

func (s *Storefront) Filter() catalog.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *Storefront) Sort() catalog.SortState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sort
}

func (s *Storefront) SetSearch(text string) {
	s.mu.Lock()
	s.filter.Search = text
	s.mu.Unlock()
}

func (s *Storefront) ToggleCategory(c string) {
	s.mu.Lock()
	s.filter = s.filter.WithCategory(c)
	s.mu.Unlock()
}

func (s *Storefront) ToggleTag(t string) {
	s.mu.Lock()
	s.filter = s.filter.WithTag(t)
	s.mu.Unlock()
}

// SetPriceRange applies an inclusive price range. An invalid range is
// rejected and the current range is kept.
func (s *Storefront) SetPriceRange(lo, hi float64) error {
	r, err := catalog.NewPriceRange(lo, hi)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.filter.Price = r
	s.mu.Unlock()
	return nil
}

func (s *Storefront) ClearPriceRange() {
	s.mu.Lock()
	s.filter.Price = catalog.PriceRange{}
	s.mu.Unlock()
}

func (s *Storefront) SetSort(st catalog.SortState) {
	s.mu.Lock()
	s.sort = st
	s.mu.Unlock()
}

// CycleSortKey moves to the next sort key, keeping the direction.
func (s *Storefront) CycleSortKey() catalog.SortState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort.Key = s.sort.Key.Next()
	return s.sort
}

// ToggleDirection flips the sort direction.
func (s *Storefront) ToggleDirection() catalog.SortState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sort.Direction == catalog.Ascending {
		s.sort.Direction = catalog.Descending
	} else {
		s.sort.Direction = catalog.Ascending
	}
	return s.sort
}

// ClearFilters drops every filter and restores the default sort.
func (s *Storefront) ClearFilters() {
	s.mu.Lock()
	s.filter = catalog.FilterState{}
	s.sort = catalog.SortState{}
	s.mu.Unlock()
}

// Users returns the loaded user list.
func (s *Storefront) Users() []domain.User { return s.users.Users() }

// SelectedUser returns the active user, if any.
func (s *Storefront) SelectedUser() (domain.User, bool) { return s.users.Selected() }

// ReloadUsers refetches the user list and restores the saved selection.
func (s *Storefront) ReloadUsers(ctx context.Context) error {
	err := s.users.LoadUsers(ctx)
	s.users.RestoreSelection()
	return err
}

// SelectUser makes id the active user.
func (s *Storefront) SelectUser(id int) (domain.User, error) {
	return s.users.SelectUser(id)
}

// NextUser selects the user after the active one, wrapping around.
func (s *Storefront) NextUser() (domain.User, error) {
	u, ok := s.users.Next()
	if !ok {
		return domain.User{}, ErrNoUsers
	}
	return s.users.SelectUser(u.ID)
}

// Trigger records an interaction for the active user.
func (s *Storefront) Trigger(ctx context.Context, productID int, kind domain.InteractionKind) (interaction.Record, error) {
	return s.recorder.Trigger(ctx, productID, kind)
}

// InteractionState returns the active user's record for (productID, kind).
// Without an active user every key is idle.
func (s *Storefront) InteractionState(productID int, kind domain.InteractionKind) interaction.Record {
	key := interaction.Key{ProductID: productID, Kind: kind}
	u, ok := s.users.Selected()
	if !ok {
		return interaction.Record{Key: key}
	}
	key.UserID = u.ID
	return s.recorder.Lookup(key)
}

// Recommendations fetches and presents recommendations for the active user.
// A backend failure yields no cards and the error for display.
func (s *Storefront) Recommendations(ctx context.Context) ([]recommend.Card, error) {
	const op = "Storefront.Recommendations"

	u, ok := s.users.Selected()
	if !ok {
		return nil, interaction.ErrNoUserSelected
	}
	recs, err := s.api.UserRecommendations(ctx, u.ID, s.opts.RecommendationLimit)
	if err != nil {
		logging.Warn().Err(err).Int("user_id", u.ID).Msg("failed to load recommendations")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return recommend.PresentAll(recs, s.opts.ExplanationLimit), nil
}
