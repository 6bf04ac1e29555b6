package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/scoring"
)

func TestComparison(t *testing.T) {
	assert.Nil(t, Comparison(nil))

	r := &scoring.Result{
		Input:    nutrient.Vector{Protein: 4, Fat: 10, TotalCarbs: 40, Fiber: 1, Sugar: 20},
		Balanced: nutrient.Vector{Protein: 4, Fat: 12, TotalCarbs: 8, Fiber: 8, Sugar: 4},
		Anchor:   nutrient.AnchorProtein,
	}
	bars := Comparison(r)
	require.Len(t, bars, len(nutrient.Anchors()))

	byAnchor := make(map[nutrient.Anchor]Bar)
	for _, b := range bars {
		byAnchor[b.Anchor] = b
	}
	carbs := byAnchor[nutrient.AnchorTotalCarbs]
	assert.Equal(t, 40.0, carbs.Scale)
	assert.InDelta(t, 0.2, carbs.Fraction(carbs.Balanced), 1e-9)
	assert.Equal(t, 12.0, byAnchor[nutrient.AnchorFat].Scale)
	assert.True(t, byAnchor[nutrient.AnchorProtein].IsAnchor)
	assert.False(t, carbs.IsAnchor)

	assert.Equal(t, 0.0, Bar{}.Fraction(5))
}
