// Package interaction records user actions (view, cart, purchase, like)
// against the backend with optimistic feedback.
//
// Every (user, product, kind) key moves through
//
//	idle -> pending -> success | error -> idle
//
// Entering pending sets the key's visual flag immediately. A failed call
// restores the flag to its value before the trigger. Success and error states
// reset to idle after a display window; a newer trigger on the same key
// cancels a scheduled reset. At most one request per key is in flight.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

var (
	// ErrNoUserSelected rejects a trigger made without an active user.
	ErrNoUserSelected = errors.New("select a user first")
	// ErrPending reports a trigger ignored because the key is already in flight.
	ErrPending = errors.New("interaction already in progress")
)

// State is the lifecycle state of one interaction key.
type State int

const (
	Idle State = iota
	Pending
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "error"
	default:
		return "idle"
	}
}

// Key identifies an interaction slot.
type Key struct {
	UserID    int
	ProductID int
	Kind      domain.InteractionKind
}

// Record is the observable state of a key.
type Record struct {
	Key   Key
	State State
	// Active is the optimistic visual flag, e.g. "in cart" or "purchased".
	Active bool
	Rating *float64
	// Message describes the failure while State is Failed.
	Message string
}

// Sender performs the backend call.
type Sender interface {
	RecordInteraction(ctx context.Context, in domain.Interaction) error
}

// UserSource provides the active user.
type UserSource interface {
	Selected() (domain.User, bool)
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. It must not call f synchronously.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Option configures a Recorder.
type Option func(*Recorder)

// WithScheduler replaces time.AfterFunc.
func WithScheduler(s Scheduler) Option {
	return func(r *Recorder) { r.schedule = s }
}

// WithListener registers a callback invoked after every state change.
// Notifications may arrive out of order across goroutines; treat them as
// change signals and read Lookup for the current state. The pending
// notification runs synchronously on the goroutine calling Trigger, so fn
// must not block waiting on that goroutine.
func WithListener(fn func(Record)) Option {
	return func(r *Recorder) { r.listener = fn }
}

// WithWindows sets how long success and error states are shown.
func WithWindows(success, failure time.Duration) Option {
	return func(r *Recorder) {
		r.successWindow = success
		r.errorWindow = failure
	}
}

// WithPurchaseRating sets the rating sent with purchases.
func WithPurchaseRating(rating float64) Option {
	return func(r *Recorder) { r.purchaseRating = rating }
}

type entry struct {
	rec   Record
	prior bool
	gen   uint64
	timer Timer
}

// Recorder owns the per-key interaction state. It is safe for concurrent use.
type Recorder struct {
	sender Sender
	users  UserSource

	schedule       Scheduler
	listener       func(Record)
	successWindow  time.Duration
	errorWindow    time.Duration
	purchaseRating float64

	mu       sync.Mutex
	entries  map[Key]*entry
	inflight sync.WaitGroup
}

// NewRecorder creates a Recorder. Defaults: 2s success window, 4s error
// window, purchase rating 5.
func NewRecorder(sender Sender, users UserSource, opts ...Option) *Recorder {
	r := &Recorder{
		sender:         sender,
		users:          users,
		schedule:       afterFunc,
		successWindow:  2 * time.Second,
		errorWindow:    4 * time.Second,
		purchaseRating: 5,
		entries:        make(map[Key]*entry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Trigger starts an interaction for the selected user. It returns the new
// pending record, ErrNoUserSelected without contacting the backend, or
// ErrPending if the same key is already in flight. The backend call runs in
// its own goroutine.
func (r *Recorder) Trigger(ctx context.Context, productID int, kind domain.InteractionKind) (Record, error) {
	const op = "Recorder.Trigger"

	if !kind.Valid() {
		return Record{}, fmt.Errorf("%s: unknown interaction kind %q", op, kind)
	}
	user, ok := r.users.Selected()
	if !ok {
		return Record{}, ErrNoUserSelected
	}
	key := Key{UserID: user.ID, ProductID: productID, Kind: kind}

	var rating *float64
	if kind == domain.InteractionPurchase {
		v := r.purchaseRating
		rating = &v
	}

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{rec: Record{Key: key}}
		r.entries[key] = e
	}
	if e.rec.State == Pending {
		rec := e.rec
		r.mu.Unlock()
		return rec, ErrPending
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	e.prior = e.rec.Active
	e.rec = Record{Key: key, State: Pending, Active: true, Rating: rating}
	gen, rec := e.gen, e.rec
	r.inflight.Add(1)
	r.mu.Unlock()

	logging.Debug().Int("user_id", key.UserID).Int("product_id", key.ProductID).Str("kind", string(kind)).Msg("interaction pending")
	r.notify(rec)

	in := domain.Interaction{UserID: key.UserID, ProductID: key.ProductID, Kind: kind, Rating: rating}
	go r.dispatch(ctx, key, gen, in)
	return rec, nil
}

func (r *Recorder) dispatch(ctx context.Context, key Key, gen uint64, in domain.Interaction) {
	defer r.inflight.Done()
	err := r.sender.RecordInteraction(ctx, in)
	r.resolve(key, gen, err)
}

func (r *Recorder) resolve(key Key, gen uint64, err error) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok || e.gen != gen {
		r.mu.Unlock()
		return
	}
	window := r.successWindow
	if err == nil {
		e.rec.State = Success
	} else {
		e.rec.State = Failed
		e.rec.Active = e.prior
		e.rec.Message = err.Error()
		window = r.errorWindow
	}
	e.timer = r.schedule(window, func() { r.reset(key, gen) })
	rec := e.rec
	r.mu.Unlock()

	if err != nil {
		logging.Warn().Err(err).Int("user_id", key.UserID).Int("product_id", key.ProductID).Str("kind", string(key.Kind)).Msg("interaction failed")
	} else {
		logging.Debug().Int("user_id", key.UserID).Int("product_id", key.ProductID).Str("kind", string(key.Kind)).Msg("interaction recorded")
	}
	r.notify(rec)
}

func (r *Recorder) reset(key Key, gen uint64) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok || e.gen != gen || e.rec.State == Pending || e.rec.State == Idle {
		r.mu.Unlock()
		return
	}
	e.rec.State = Idle
	e.rec.Message = ""
	e.timer = nil
	rec := e.rec
	r.mu.Unlock()
	r.notify(rec)
}

func (r *Recorder) notify(rec Record) {
	if r.listener != nil {
		r.listener(rec)
	}
}

// Lookup returns the current record for key; unknown keys are idle.
func (r *Recorder) Lookup(key Key) Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.rec
	}
	return Record{Key: key}
}

// Close waits for in-flight calls to finish and cancels scheduled resets.
func (r *Recorder) Close() {
	r.inflight.Wait()
	r.mu.Lock()
	for _, e := range r.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	r.mu.Unlock()
}
