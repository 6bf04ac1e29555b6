package nutrient

import (
	"fmt"
	"strings"
)

// Anchor is the macro used as the fixed reference point for balancing.
// Its value is the UI key (e.g. "TotalCarbs").
type Anchor string

// Supported anchors, in display order.
const (
	AnchorProtein    Anchor = "Protein"
	AnchorFat        Anchor = "Fat"
	AnchorTotalCarbs Anchor = "TotalCarbs"
	AnchorFiber      Anchor = "Fiber"
	AnchorSugar      Anchor = "Sugar"
)

// DefaultAnchor is used for both the cart and the item view until the user
// picks another one.
const DefaultAnchor = AnchorProtein

// Anchors returns every supported anchor in display order.
func Anchors() []Anchor {
	return []Anchor{AnchorProtein, AnchorFat, AnchorTotalCarbs, AnchorFiber, AnchorSugar}
}

// WireID returns the lower-cased snake_case key expected by the scorer.
func (a Anchor) WireID() string {
	switch a {
	case AnchorProtein:
		return "protein"
	case AnchorFat:
		return "fat"
	case AnchorTotalCarbs:
		return "total_carbs"
	case AnchorFiber:
		return "fiber"
	case AnchorSugar:
		return "sugar"
	}
	return ""
}

// Label returns a human-readable macro name.
func (a Anchor) Label() string {
	if a == AnchorTotalCarbs {
		return "Total Carbs"
	}
	return string(a)
}

// Valid reports whether a is one of the supported anchors.
func (a Anchor) Valid() bool {
	return a.WireID() != ""
}

// Next cycles to the following anchor in display order.
func (a Anchor) Next() Anchor {
	all := Anchors()
	for i, candidate := range all {
		if candidate == a {
			return all[(i+1)%len(all)]
		}
	}
	return DefaultAnchor
}

// ParseAnchor accepts UI keys, wire ids and loose spellings such as
// "total carbs", "total-carbs" or "TOTALCARBS".
func ParseAnchor(s string) (Anchor, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	switch key {
	case "protein":
		return AnchorProtein, nil
	case "fat":
		return AnchorFat, nil
	case "totalcarbs", "carbs":
		return AnchorTotalCarbs, nil
	case "fiber", "fibre":
		return AnchorFiber, nil
	case "sugar":
		return AnchorSugar, nil
	}
	return "", fmt.Errorf("%w: %q (valid: Protein, Fat, TotalCarbs, Fiber, Sugar)", ErrUnknownAnchor, s)
}

// UnmarshalText lets anchors be read from YAML config and CLI flags.
func (a *Anchor) UnmarshalText(text []byte) error {
	parsed, err := ParseAnchor(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText writes the UI key.
func (a Anchor) MarshalText() ([]byte, error) {
	return []byte(a), nil
}
