package acquire

import (
	"strings"

	"github.com/rshade/cvindex/internal/nutrient"
)

// Source records how a draft was populated.
type Source string

// Draft sources.
const (
	SourceNone    Source = ""
	SourceManual  Source = "manual"
	SourceCapture Source = "capture"
	SourceLookup  Source = "lookup"
)

// defaultCaptureName names a scanned label until the user types a name.
const defaultCaptureName = "Scanned label"

// Draft is an item populated by a flow but not yet committed to the cart.
// PerServing is what the form shows; CartVector is what the cart receives.
type Draft struct {
	Name       string          `json:"name"`
	PerServing nutrient.Vector `json:"per_serving"`
	Servings   float64         `json:"servings"`
	Source     Source          `json:"source"`
}

// Empty reports whether the draft was never populated.
func (d Draft) Empty() bool {
	return d.Source == SourceNone && strings.TrimSpace(d.Name) == "" && d.PerServing.IsZero()
}

// ServingCount returns Servings, or 1 when it is not positive.
func (d Draft) ServingCount() float64 {
	if d.Servings <= 0 {
		return 1
	}
	return d.Servings
}

// CartVector is the per-serving vector scaled by the serving count.
func (d Draft) CartVector() nutrient.Vector {
	return d.PerServing.Scale(d.ServingCount())
}
