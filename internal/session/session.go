// Package session wires the cart, the scoring orchestrator and the
// acquisition pipeline into the control flow of one user session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rshade/cvindex/internal/acquire"
	"github.com/rshade/cvindex/internal/cart"
	"github.com/rshade/cvindex/internal/logging"
	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/scoring"
)

// ErrNoDraft is returned when confirming an empty draft.
var ErrNoDraft = errors.New("no draft item to confirm")

// Dispatcher runs an issued scoring request. The inline dispatcher executes
// and settles it before returning; a UI can queue it instead.
type Dispatcher func(req scoring.Request)

// Session is a single user's cart and item scoring state.
type Session struct {
	store  *cart.Store
	orch   *scoring.Orchestrator
	logger zerolog.Logger
	ctx    context.Context

	mu          sync.Mutex
	cartAnchor  nutrient.Anchor
	itemAnchor  nutrient.Anchor
	itemVector  *nutrient.Vector
	dispatch    Dispatcher
	unsubscribe func()
}

// Option configures a Session.
type Option func(*Session)

// WithAnchors sets the initial cart and item anchors.
func WithAnchors(cartAnchor, itemAnchor nutrient.Anchor) Option {
	return func(s *Session) {
		if cartAnchor.Valid() {
			s.cartAnchor = cartAnchor
		}
		if itemAnchor.Valid() {
			s.itemAnchor = itemAnchor
		}
	}
}

// WithDispatcher replaces the inline dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Session) { s.dispatch = d }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = logging.ComponentLogger(l, "session") }
}

// WithContext sets the context used by the inline dispatcher.
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.ctx = ctx }
}

// New creates a Session and subscribes it to store changes.
func New(store *cart.Store, orch *scoring.Orchestrator, opts ...Option) *Session {
	s := &Session{
		store:      store,
		orch:       orch,
		logger:     zerolog.Nop(),
		ctx:        context.Background(),
		cartAnchor: nutrient.DefaultAnchor,
		itemAnchor: nutrient.DefaultAnchor,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dispatch == nil {
		s.dispatch = func(req scoring.Request) { s.Run(s.ctx, req) }
	}
	s.unsubscribe = store.Subscribe(s.onCartChange)
	return s
}

// Close stops listening to the cart.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Cart returns the cart store.
func (s *Session) Cart() *cart.Store { return s.store }

// Orchestrator returns the scoring orchestrator.
func (s *Session) Orchestrator() *scoring.Orchestrator { return s.orch }

// Run executes req and applies its outcome unless superseded.
func (s *Session) Run(ctx context.Context, req scoring.Request) bool {
	return s.orch.Settle(s.orch.Execute(ctx, req))
}

// CartAnchor returns the cart's selected anchor.
func (s *Session) CartAnchor() nutrient.Anchor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartAnchor
}

// ItemAnchor returns the draft item's selected anchor.
func (s *Session) ItemAnchor() nutrient.Anchor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemAnchor
}

// SetCartAnchor changes the cart anchor and rescores a non-empty cart.
func (s *Session) SetCartAnchor(a nutrient.Anchor) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %q", nutrient.ErrUnknownAnchor, a)
	}
	s.mu.Lock()
	changed := s.cartAnchor != a
	s.cartAnchor = a
	s.mu.Unlock()

	if changed {
		s.logger.Debug().Str("anchor", string(a)).Msg("cart anchor changed")
		s.RescoreCart()
	}
	return nil
}

// SetItemAnchor changes the item anchor and rescores the last item vector.
func (s *Session) SetItemAnchor(a nutrient.Anchor) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %q", nutrient.ErrUnknownAnchor, a)
	}
	s.mu.Lock()
	changed := s.itemAnchor != a
	s.itemAnchor = a
	vec := s.itemVector
	dispatch := s.dispatch
	s.mu.Unlock()

	if changed && vec != nil {
		s.logger.Debug().Str("anchor", string(a)).Msg("item anchor changed")
		dispatch(s.orch.Begin(scoring.TargetItem, *vec, a))
	}
	return nil
}

// RescoreCart issues a cart score for the current aggregate, or resets the
// cart score when the cart is empty.
func (s *Session) RescoreCart() {
	agg := s.store.Aggregate()
	if agg == nil {
		s.orch.Reset(scoring.TargetCart)
		return
	}
	s.mu.Lock()
	anchor, dispatch := s.cartAnchor, s.dispatch
	s.mu.Unlock()
	dispatch(s.orch.Begin(scoring.TargetCart, *agg, anchor))
}

// ScoreItem scores a single-item vector with the item anchor and
// remembers it for anchor changes.
func (s *Session) ScoreItem(ctx context.Context, vector nutrient.Vector) (scoring.State, error) {
	s.mu.Lock()
	v := vector
	s.itemVector = &v
	anchor := s.itemAnchor
	s.mu.Unlock()

	logSubset(s.logger, vector)
	return s.orch.Score(ctx, scoring.TargetItem, vector, anchor)
}

// AddItem adds an item directly to the cart.
func (s *Session) AddItem(name string, vector nutrient.Vector, quantity int) (cart.Item, error) {
	return s.store.Add(name, vector, quantity)
}

// ConfirmDraft adds the pipeline's draft to the cart as quantity units of
// its scaled vector, then clears the draft and the item score.
func (s *Session) ConfirmDraft(p *acquire.Pipeline, quantity int) (cart.Item, error) {
	d := p.Draft()
	if d.Empty() {
		return cart.Item{}, ErrNoDraft
	}
	item, err := s.store.Add(d.Name, d.CartVector(), quantity)
	if err != nil {
		return cart.Item{}, err
	}
	if err := p.ResetDraft(); err != nil {
		s.logger.Warn().Err(err).Msg("draft not cleared after confirm")
	}
	s.mu.Lock()
	s.itemVector = nil
	s.mu.Unlock()
	s.orch.Reset(scoring.TargetItem)
	return item, nil
}

func (s *Session) onCartChange(snap cart.Snapshot) {
	if snap.Kind == cart.ChangeNone {
		return
	}
	if snap.Empty() {
		s.logger.Debug().Str("change", snap.Kind.String()).Msg("cart empty, score reset")
		s.orch.Reset(scoring.TargetCart)
		return
	}
	logSubset(s.logger, *snap.Aggregate)

	s.mu.Lock()
	anchor, dispatch := s.cartAnchor, s.dispatch
	s.mu.Unlock()
	dispatch(s.orch.Begin(scoring.TargetCart, *snap.Aggregate, anchor))
}

func logSubset(l zerolog.Logger, v nutrient.Vector) {
	for _, w := range v.SubsetWarnings() {
		l.Warn().Msg(w)
	}
}
