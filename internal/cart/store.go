package cart

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/cvindex/internal/nutrient"
)

// ChangeKind describes the mutation that produced a Snapshot.
type ChangeKind int

const (
	// ChangeNone marks a read-only snapshot.
	ChangeNone ChangeKind = iota
	// ChangeAdded means an item was appended.
	ChangeAdded
	// ChangeRemoved means an item was deleted and items remain.
	ChangeRemoved
	// ChangeQuantity means an item's quantity changed.
	ChangeQuantity
	// ChangeEmptied means the cart has no items, through removal or Clear.
	ChangeEmptied
)

// String returns the change name for logs.
func (k ChangeKind) String() string {
	switch k {
	case ChangeNone:
		return "none"
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeQuantity:
		return "quantity"
	case ChangeEmptied:
		return "emptied"
	}
	return "unknown"
}

// Snapshot is a consistent view of the cart after one mutation.
// Aggregate is nil exactly when Items is empty.
type Snapshot struct {
	Kind      ChangeKind
	ItemID    string
	Items     []Item
	Aggregate *nutrient.Vector
}

// Empty reports whether the snapshot has no items.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Subscriber receives a Snapshot after every mutation, synchronously,
// before the mutator returns.
type Subscriber func(Snapshot)

// Store is the single writer for cart items.
type Store struct {
	mu        sync.Mutex
	items     []Item
	aggregate *nutrient.Vector
	ids       *idSource
	logger    zerolog.Logger

	subMu  sync.Mutex
	subs   map[int]Subscriber
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the time source used for ULID timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.ids = newIDSource(now) }
}

// NewStore creates an empty cart.
func NewStore(opts ...Option) *Store {
	s := &Store{
		ids:    newIDSource(nil),
		logger: zerolog.Nop(),
		subs:   make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn and returns a function that unregisters it.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Add appends a new item with a fresh ID. vector must already be scaled by
// the serving count.
func (s *Store) Add(name string, vector nutrient.Vector, quantity int) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, ErrEmptyName
	}
	if quantity < 0 {
		return Item{}, fmt.Errorf("%w: %d", ErrNegativeQuantity, quantity)
	}
	if err := vector.Validate(); err != nil {
		return Item{}, fmt.Errorf("invalid vector for %q: %w", name, err)
	}
	for _, w := range vector.SubsetWarnings() {
		s.logger.Warn().Str("item", name).Msg(w)
	}

	vector.NetCarbs = nil
	item := Item{ID: s.ids.next(), Name: name, Vector: vector, Quantity: quantity}

	s.mu.Lock()
	s.items = append(s.items, item)
	snap := s.recomputeLocked(ChangeAdded, item.ID)
	s.mu.Unlock()

	s.logger.Debug().Str("item_id", item.ID).Str("item", name).Int("quantity", quantity).
		Int("items", len(snap.Items)).Msg("item added")
	s.publish(snap)
	return item, nil
}

// Remove deletes the item with the given ID. Removing the last item
// clears the aggregate.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	kind := ChangeRemoved
	if len(s.items) == 0 {
		kind = ChangeEmptied
	}
	snap := s.recomputeLocked(kind, id)
	s.mu.Unlock()

	s.logger.Debug().Str("item_id", id).Str("change", kind.String()).Msg("item removed")
	s.publish(snap)
	return nil
}

// UpdateQuantity sets an item's quantity, clamping negatives to zero.
func (s *Store) UpdateQuantity(id string, quantity int) (Item, error) {
	if quantity < 0 {
		quantity = 0
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	s.items[idx].Quantity = quantity
	item := s.items[idx]
	snap := s.recomputeLocked(ChangeQuantity, id)
	s.mu.Unlock()

	s.logger.Debug().Str("item_id", id).Int("quantity", quantity).Msg("quantity updated")
	s.publish(snap)
	return item, nil
}

// Clear removes every item and the aggregate in one step.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	snap := s.recomputeLocked(ChangeEmptied, "")
	s.mu.Unlock()

	s.logger.Debug().Msg("cart cleared")
	s.publish(snap)
}

// Snapshot returns the current items and aggregate.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(ChangeNone, "")
}

// Items returns a copy of the current items in insertion order.
func (s *Store) Items() []Item {
	return s.Snapshot().Items
}

// Aggregate returns the current aggregate, or nil for an empty cart.
func (s *Store) Aggregate() *nutrient.Vector {
	return s.Snapshot().Aggregate
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get returns the item with the given ID.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Item{}, false
	}
	return s.items[idx], true
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// recomputeLocked rebuilds the aggregate from scratch. Must be called with mu held.
func (s *Store) recomputeLocked(kind ChangeKind, id string) Snapshot {
	s.aggregate = Aggregate(s.items)
	return s.snapshotLocked(kind, id)
}

func (s *Store) snapshotLocked(kind ChangeKind, id string) Snapshot {
	items := make([]Item, len(s.items))
	copy(items, s.items)
	var agg *nutrient.Vector
	if s.aggregate != nil {
		v := *s.aggregate
		agg = &v
	}
	return Snapshot{Kind: kind, ItemID: id, Items: items, Aggregate: agg}
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	subs := make([]Subscriber, 0, len(s.subs))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
