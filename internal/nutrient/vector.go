// Package nutrient defines the macronutrient vector shared by the cart,
// the scoring orchestrator and the acquisition flows, together with the
// anchor macro used by the remote balancing calculation.
package nutrient

import (
	"fmt"
	"math"
)

// Vector is a macronutrient breakdown in grams.
//
// Fiber and Sugar are conceptually part of TotalCarbs but that is not
// enforced; see SubsetWarnings.
type Vector struct {
	Protein    float64 `json:"protein"     yaml:"protein"`
	Fat        float64 `json:"fat"         yaml:"fat"`
	TotalCarbs float64 `json:"total_carbs" yaml:"total_carbs"`
	Fiber      float64 `json:"fiber"       yaml:"fiber"`
	Sugar      float64 `json:"sugar"       yaml:"sugar"`

	// NetCarbs is only ever copied from a scorer response. It is never
	// computed locally and is dropped by every arithmetic helper.
	NetCarbs *float64 `json:"net_carbs,omitempty" yaml:"net_carbs,omitempty"`
}

// Field pairs a macro with its value, in display order.
type Field struct {
	Anchor Anchor
	Grams  float64
}

// Fields returns the five macros in display order.
func (v Vector) Fields() []Field {
	return []Field{
		{Anchor: AnchorProtein, Grams: v.Protein},
		{Anchor: AnchorFat, Grams: v.Fat},
		{Anchor: AnchorTotalCarbs, Grams: v.TotalCarbs},
		{Anchor: AnchorFiber, Grams: v.Fiber},
		{Anchor: AnchorSugar, Grams: v.Sugar},
	}
}

// Get returns the grams for the given macro.
func (v Vector) Get(a Anchor) float64 {
	switch a {
	case AnchorProtein:
		return v.Protein
	case AnchorFat:
		return v.Fat
	case AnchorTotalCarbs:
		return v.TotalCarbs
	case AnchorFiber:
		return v.Fiber
	case AnchorSugar:
		return v.Sugar
	}
	return 0
}

// Validate reports the first field that is negative or not finite.
func (v Vector) Validate() error {
	for _, f := range v.Fields() {
		if math.IsNaN(f.Grams) || math.IsInf(f.Grams, 0) {
			return fmt.Errorf("%w: %s", ErrNonFinite, f.Anchor.Label())
		}
		if f.Grams < 0 {
			return fmt.Errorf("%w: %s=%g", ErrNegativeValue, f.Anchor.Label(), f.Grams)
		}
	}
	return nil
}

// Scale multiplies every macro by factor. NetCarbs is not carried.
func (v Vector) Scale(factor float64) Vector {
	return Vector{
		Protein:    v.Protein * factor,
		Fat:        v.Fat * factor,
		TotalCarbs: v.TotalCarbs * factor,
		Fiber:      v.Fiber * factor,
		Sugar:      v.Sugar * factor,
	}
}

// Add returns the element-wise sum. NetCarbs is not carried.
func (v Vector) Add(o Vector) Vector {
	return Vector{
		Protein:    v.Protein + o.Protein,
		Fat:        v.Fat + o.Fat,
		TotalCarbs: v.TotalCarbs + o.TotalCarbs,
		Fiber:      v.Fiber + o.Fiber,
		Sugar:      v.Sugar + o.Sugar,
	}
}

// IsZero reports whether all five macros are zero.
func (v Vector) IsZero() bool {
	return v.Protein == 0 && v.Fat == 0 && v.TotalCarbs == 0 && v.Fiber == 0 && v.Sugar == 0
}

// Equal compares the five macros exactly, ignoring NetCarbs.
func (v Vector) Equal(o Vector) bool {
	return v.Protein == o.Protein && v.Fat == o.Fat && v.TotalCarbs == o.TotalCarbs &&
		v.Fiber == o.Fiber && v.Sugar == o.Sugar
}

// SubsetWarnings lists the fields that exceed TotalCarbs. The remote scorer
// may or may not reject such input, so callers only log these.
func (v Vector) SubsetWarnings() []string {
	var warnings []string
	if v.Fiber > v.TotalCarbs {
		warnings = append(warnings, fmt.Sprintf("fiber %.1fg exceeds total carbs %.1fg", v.Fiber, v.TotalCarbs))
	}
	if v.Sugar > v.TotalCarbs {
		warnings = append(warnings, fmt.Sprintf("sugar %.1fg exceeds total carbs %.1fg", v.Sugar, v.TotalCarbs))
	}
	return warnings
}
