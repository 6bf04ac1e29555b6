// Package cart owns the set of cart line items and derives the aggregate
// nutrient vector used for cart-level scoring.
package cart

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/cvindex/internal/nutrient"
)

// Store errors.
var (
	ErrItemNotFound     = errors.New("cart item not found")
	ErrEmptyName        = errors.New("cart item name cannot be empty")
	ErrNegativeQuantity = errors.New("cart item quantity cannot be negative")
)

// Item is one cart line. Vector is already scaled by the serving count;
// Quantity multiplies it again. Only Quantity ever changes after creation.
type Item struct {
	ID       string          `json:"id"       yaml:"id"`
	Name     string          `json:"name"     yaml:"name"`
	Vector   nutrient.Vector `json:"vector"   yaml:"vector"`
	Quantity int             `json:"quantity" yaml:"quantity"`
}

// Contribution returns Vector × Quantity.
func (i Item) Contribution() nutrient.Vector {
	return i.Vector.Scale(float64(i.Quantity))
}

// idSource generates monotonic ULIDs so items created within the same
// millisecond still sort in creation order.
type idSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func newIDSource(now func() time.Time) *idSource {
	if now == nil {
		now = time.Now
	}
	return &idSource{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     now,
	}
}

func (s *idSource) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}
