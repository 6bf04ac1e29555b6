// Package zone maps a predicted score onto a discrete risk tier and a
// display color.
//
// Tier ranges are half-open: each tier starts at its floor and ends just
// below the next floor, so 14.95 is Low and 15 is Caution. Published
// one-decimal ranges such as 0-14.9 read the same way.
package zone

import "math"

// Tier is a discrete risk classification.
type Tier int

const (
	// TierUnavailable is used when no valid score exists.
	TierUnavailable Tier = iota
	// TierLow covers [0, 15).
	TierLow
	// TierCaution covers [15, 25).
	TierCaution
	// TierDangerous covers [25, 35).
	TierDangerous
	// TierRedZone covers [35, 50] and saturates above 50.
	TierRedZone
)

// Scale bounds and tier lower edges.
const (
	MinScore       = 0.0
	MaxScore       = 50.0
	cautionFloor   = 15.0
	dangerousFloor = 25.0
	redZoneFloor   = 35.0
)

// Zone is the classification result for a score.
type Zone struct {
	Tier  Tier
	Label string
	// Color is a hex color usable by lipgloss.
	Color string
}

// Tier definitions.
//
//nolint:gochecknoglobals // Read-only lookup table.
var zones = map[Tier]Zone{
	TierUnavailable: {Tier: TierUnavailable, Label: "Unavailable", Color: "#808080"},
	TierLow:         {Tier: TierLow, Label: "Low", Color: "#2E8B57"},
	TierCaution:     {Tier: TierCaution, Label: "Caution", Color: "#E6B800"},
	TierDangerous:   {Tier: TierDangerous, Label: "Dangerous", Color: "#FF8C00"},
	TierRedZone:     {Tier: TierRedZone, Label: "Red Zone", Color: "#DC143C"},
}

// String returns the tier label.
func (t Tier) String() string {
	return ForTier(t).Label
}

// ForTier returns the Zone definition for t, or Unavailable for unknown tiers.
func ForTier(t Tier) Zone {
	if z, ok := zones[t]; ok {
		return z
	}
	return zones[TierUnavailable]
}

// Tiers returns the four scored tiers in ascending order.
func Tiers() []Zone {
	return []Zone{zones[TierLow], zones[TierCaution], zones[TierDangerous], zones[TierRedZone]}
}

// Classify maps a score to a Zone. A nil, NaN or negative score is
// Unavailable; anything above MaxScore saturates to Red Zone.
func Classify(score *float64) Zone {
	if score == nil {
		return zones[TierUnavailable]
	}
	return ClassifyValue(*score)
}

// ClassifyValue is Classify for a score that is known to exist.
func ClassifyValue(score float64) Zone {
	switch {
	case math.IsNaN(score), score < MinScore:
		return zones[TierUnavailable]
	case score < cautionFloor:
		return zones[TierLow]
	case score < dangerousFloor:
		return zones[TierCaution]
	case score < redZoneFloor:
		return zones[TierDangerous]
	default:
		return zones[TierRedZone]
	}
}

// Clamp bounds a score to [MinScore, MaxScore]. NaN becomes MinScore.
func Clamp(score float64) float64 {
	if math.IsNaN(score) || score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
