package cart

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cvindex/internal/nutrient"
)

func TestStore_TwoItemAggregate(t *testing.T) {
	s := NewStore()

	_, err := s.Add("Oatmeal", nutrient.Vector{Protein: 10, Fat: 5, TotalCarbs: 20, Fiber: 2, Sugar: 5}, 1)
	require.NoError(t, err)
	_, err = s.Add("Yogurt", nutrient.Vector{Protein: 5, Fat: 2, TotalCarbs: 10, Fiber: 1, Sugar: 2}, 2)
	require.NoError(t, err)

	agg := s.Aggregate()
	require.NotNil(t, agg)
	assert.True(t, agg.Equal(nutrient.Vector{Protein: 20, Fat: 9, TotalCarbs: 40, Fiber: 4, Sugar: 9}), "got %+v", *agg)
}

func TestStore_AddAssignsUniqueIDs(t *testing.T) {
	s := NewStore()
	seen := make(map[string]bool)
	for range 50 {
		item, err := s.Add("Apple", nutrient.Vector{TotalCarbs: 25}, 1)
		require.NoError(t, err)
		assert.Len(t, item.ID, 26)
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
	assert.Equal(t, 50, s.Len())
}

func TestStore_AddValidation(t *testing.T) {
	s := NewStore()

	_, err := s.Add("  ", nutrient.Vector{}, 1)
	assert.True(t, errors.Is(err, ErrEmptyName))

	_, err = s.Add("Bread", nutrient.Vector{}, -1)
	assert.True(t, errors.Is(err, ErrNegativeQuantity))

	_, err = s.Add("Bread", nutrient.Vector{Fat: -2}, 1)
	assert.True(t, errors.Is(err, nutrient.ErrNegativeValue))

	assert.Zero(t, s.Len())
	assert.Nil(t, s.Aggregate())
}

func TestStore_AddDropsNetCarbs(t *testing.T) {
	s := NewStore()
	net := 3.0
	item, err := s.Add("Rice", nutrient.Vector{TotalCarbs: 5, Fiber: 2, NetCarbs: &net}, 1)
	require.NoError(t, err)
	assert.Nil(t, item.Vector.NetCarbs)
}

func TestStore_RemoveLastItemClearsAggregate(t *testing.T) {
	s := NewStore()
	var snaps []Snapshot
	s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })

	item, err := s.Add("Banana", nutrient.Vector{TotalCarbs: 27, Fiber: 3, Sugar: 14}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Remove(item.ID))

	require.Len(t, snaps, 2)
	last := snaps[1]
	assert.Equal(t, ChangeEmptied, last.Kind)
	assert.Empty(t, last.Items)
	assert.Nil(t, last.Aggregate)
	assert.Nil(t, s.Aggregate())
	assert.Zero(t, s.Len())
}

func TestStore_RemoveKeepsOthers(t *testing.T) {
	s := NewStore()
	a, _ := s.Add("A", nutrient.Vector{Protein: 1}, 1)
	b, _ := s.Add("B", nutrient.Vector{Protein: 2}, 1)

	require.NoError(t, s.Remove(a.ID))
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, 2.0, s.Aggregate().Protein)

	err := s.Remove(a.ID)
	assert.True(t, errors.Is(err, ErrItemNotFound))
}

func TestStore_UpdateQuantity(t *testing.T) {
	s := NewStore()
	item, _ := s.Add("Egg", nutrient.Vector{Protein: 6, Fat: 5}, 1)

	updated, err := s.UpdateQuantity(item.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, 18.0, s.Aggregate().Protein)

	updated, err = s.UpdateQuantity(item.ID, -4)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity, "negative quantities clamp to zero")
	require.NotNil(t, s.Aggregate(), "zero quantity keeps the item")
	assert.Equal(t, 0.0, s.Aggregate().Protein)
	assert.Equal(t, 1, s.Len())

	_, err = s.UpdateQuantity("missing", 1)
	assert.True(t, errors.Is(err, ErrItemNotFound))
}

func TestStore_ClearIsAtomic(t *testing.T) {
	s := NewStore()
	_, _ = s.Add("A", nutrient.Vector{Protein: 1}, 1)
	_, _ = s.Add("B", nutrient.Vector{Protein: 2}, 1)

	var snaps []Snapshot
	s.Subscribe(func(snap Snapshot) {
		// The store is already consistent when subscribers run.
		assert.Equal(t, len(snap.Items) == 0, s.Aggregate() == nil)
		snaps = append(snaps, snap)
	})
	s.Clear()

	require.Len(t, snaps, 1, "clear publishes exactly one snapshot")
	assert.Equal(t, ChangeEmptied, snaps[0].Kind)
	assert.True(t, snaps[0].Empty())
	assert.Nil(t, snaps[0].Aggregate)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore()
	calls := 0
	unsubscribe := s.Subscribe(func(Snapshot) { calls++ })
	_, _ = s.Add("A", nutrient.Vector{}, 1)
	unsubscribe()
	_, _ = s.Add("B", nutrient.Vector{}, 1)
	assert.Equal(t, 1, calls)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	item, _ := s.Add("A", nutrient.Vector{Protein: 1}, 1)
	snap := s.Snapshot()
	snap.Items[0].Quantity = 99
	snap.Aggregate.Protein = 99

	got, ok := s.Get(item.ID)
	require.True(t, ok)
	assert.Equal(t, 1, got.Quantity)
	assert.Equal(t, 1.0, s.Aggregate().Protein)
}

func TestAggregate_OrderIndependentAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	items := make([]Item, 40)
	for i := range items {
		items[i] = Item{
			ID: string(rune('a' + i)),
			Vector: nutrient.Vector{
				Protein:    rng.Float64() * 30,
				Fat:        rng.Float64() * 20,
				TotalCarbs: rng.Float64() * 60,
				Fiber:      rng.Float64() * 10,
				Sugar:      rng.Float64() * 25,
			},
			Quantity: rng.Intn(4),
		}
	}

	want := Aggregate(items)
	require.NotNil(t, want)
	assert.Equal(t, *want, *Aggregate(items), "recomputing must be identical")

	for range 20 {
		shuffled := make([]Item, len(items))
		copy(shuffled, items)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, *want, *Aggregate(shuffled))
	}
}

func TestAggregate_Empty(t *testing.T) {
	assert.Nil(t, Aggregate(nil))
	assert.Nil(t, Aggregate([]Item{}))
}
