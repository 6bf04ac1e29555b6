package session

import (
	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/scoring"
)

// Bar is one row of the actual vs balanced comparison.
type Bar struct {
	Anchor   nutrient.Anchor `json:"anchor"`
	Label    string          `json:"label"`
	Actual   float64         `json:"actual"`
	Balanced float64         `json:"balanced"`
	// Scale is the larger of the two values, the full width of the bar.
	Scale    float64 `json:"scale"`
	IsAnchor bool    `json:"is_anchor"`
}

// Comparison lists per-macro actual vs balanced rows for r. A nil result
// yields no rows.
func Comparison(r *scoring.Result) []Bar {
	if r == nil {
		return nil
	}
	bars := make([]Bar, 0, len(nutrient.Anchors()))
	for _, a := range nutrient.Anchors() {
		actual, balanced := r.Input.Get(a), r.Balanced.Get(a)
		bars = append(bars, Bar{
			Anchor:   a,
			Label:    a.Label(),
			Actual:   actual,
			Balanced: balanced,
			Scale:    max(actual, balanced),
			IsAnchor: a == r.Anchor,
		})
	}
	return bars
}

// Fraction returns v as a share of the bar's scale, 0 when the scale is 0.
func (b Bar) Fraction(v float64) float64 {
	if b.Scale <= 0 {
		return 0
	}
	return v / b.Scale
}
