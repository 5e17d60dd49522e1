// Package usercontext holds the storefront's active user. At most one user
// is selected at a time and only members of the loaded user list can be
// selected. The selection is persisted to a durable key/value store.
package usercontext

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

// ErrUnknownUser is returned when selecting a user that is not in the loaded list.
var ErrUnknownUser = errors.New("user is not in the loaded user list")

// SelectedUserKey is the durable store entry holding the selected user's id.
const SelectedUserKey = "storefront:selected_user_id"

// UserLister fetches the user list.
type UserLister interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// Context owns the user list and the current selection.
type Context struct {
	mu       sync.RWMutex
	lister   UserLister
	store    domain.KVStore
	users    []domain.User
	selected *domain.User
}

// New creates an empty user context.
func New(lister UserLister, store domain.KVStore) *Context {
	return &Context{lister: lister, store: store}
}

// LoadUsers fetches the user list. On failure the list is empty, the
// selection is cleared and the error is returned for display only.
func (c *Context) LoadUsers(ctx context.Context) error {
	const op = "Context.LoadUsers"

	users, err := c.lister.ListUsers(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.users = nil
		c.selected = nil
		logging.Warn().Err(err).Msg("failed to load users")
		return fmt.Errorf("%s: %w", op, err)
	}
	c.users = users
	if c.selected != nil && !contains(users, c.selected.ID) {
		c.selected = nil
	}
	logging.Debug().Int("users", len(users)).Msg("users loaded")
	return nil
}

// RestoreSelection selects the persisted user if it is still in the list,
// otherwise the first user, otherwise nothing. A store read failure is
// treated as "nothing persisted".
func (c *Context) RestoreSelection() (domain.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selected = nil
	if id, ok := c.savedID(); ok {
		for i := range c.users {
			if c.users[i].ID == id {
				u := c.users[i]
				c.selected = &u
				return u, true
			}
		}
	}
	if len(c.users) == 0 {
		return domain.User{}, false
	}
	u := c.users[0]
	c.selected = &u
	return u, true
}

func (c *Context) savedID() (int, bool) {
	raw, ok, err := c.store.Get(SelectedUserKey)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to read saved user")
		return 0, false
	}
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SelectUser makes the user with id active and persists the id before
// returning. Unknown ids are rejected with ErrUnknownUser and leave the
// selection unchanged.
func (c *Context) SelectUser(id int) (domain.User, error) {
	const op = "Context.SelectUser"

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i := range c.users {
		if c.users[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.User{}, fmt.Errorf("%s: %d: %w", op, id, ErrUnknownUser)
	}
	u := c.users[idx]
	c.selected = &u
	if err := c.store.Set(SelectedUserKey, strconv.Itoa(u.ID)); err != nil {
		logging.Error().Err(err).Int("user_id", u.ID).Msg("failed to persist selected user")
		return u, fmt.Errorf("%s: persist: %w", op, err)
	}
	logging.Info().Int("user_id", u.ID).Msg("user selected")
	return u, nil
}

// Selected returns the active user, if any.
func (c *Context) Selected() (domain.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return domain.User{}, false
	}
	return *c.selected, true
}

// Users returns a copy of the loaded user list.
func (c *Context) Users() []domain.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.User, len(c.users))
	copy(out, c.users)
	return out
}

// Next returns the user after the selected one, wrapping around.
func (c *Context) Next() (domain.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.users) == 0 {
		return domain.User{}, false
	}
	if c.selected == nil {
		return c.users[0], true
	}
	for i := range c.users {
		if c.users[i].ID == c.selected.ID {
			return c.users[(i+1)%len(c.users)], true
		}
	}
	return c.users[0], true
}

func contains(users []domain.User, id int) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}
