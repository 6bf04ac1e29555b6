// Package scoring issues scoring requests for the cart and for a single
// item, and decides which response is allowed to be displayed.
//
// Each target keeps a monotonically increasing sequence number. A response
// is applied only if it carries the latest number issued for its target,
// so a slow answer to an old trigger can never overwrite a newer one.
package scoring

import (
	"context"
	"errors"

	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/remote"
	"github.com/rshade/cvindex/internal/zone"
)

// ErrSuperseded is returned by Score when a newer trigger for the same
// target was issued before the response arrived.
var ErrSuperseded = errors.New("scoring request superseded by a newer trigger")

// Target identifies an independent scoring stream.
type Target int

const (
	// TargetCart scores the cart aggregate.
	TargetCart Target = iota
	// TargetItem scores the draft item.
	TargetItem
)

// String returns the target name.
func (t Target) String() string {
	if t == TargetItem {
		return "item"
	}
	return "cart"
}

// Phase is the request lifecycle of a target.
type Phase int

const (
	// PhaseIdle means nothing was requested since creation or reset.
	PhaseIdle Phase = iota
	// PhaseInFlight means the latest request has not answered yet.
	PhaseInFlight
	// PhaseSettled means the latest request succeeded.
	PhaseSettled
	// PhaseFailed means the latest request failed.
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInFlight:
		return "in-flight"
	case PhaseSettled:
		return "settled"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// Scorer is the remote scoring contract.
type Scorer interface {
	Score(ctx context.Context, vector nutrient.Vector, anchor nutrient.Anchor) (*remote.ScoreResponse, error)
}

// Result is a successful scoring response.
type Result struct {
	PredictedScore float64         `json:"predicted_score"`
	Input          nutrient.Vector `json:"input"`
	Balanced       nutrient.Vector `json:"balanced"`
	BaseRatio      float64         `json:"base_ratio"`
	TierLabel      string          `json:"tier_label"`
	TierColor      string          `json:"tier_color"`
	Anchor         nutrient.Anchor `json:"anchor"`
}

// ResultFromResponse converts a scorer response.
func ResultFromResponse(resp *remote.ScoreResponse, anchor nutrient.Anchor) *Result {
	return &Result{
		PredictedScore: resp.PredictedSpike,
		Input:          resp.InputData,
		Balanced:       resp.BalancedMacros,
		BaseRatio:      resp.BaseRatio,
		TierLabel:      resp.TierLabel,
		TierColor:      resp.TierColor,
		Anchor:         anchor,
	}
}

// Request is one issued scoring trigger.
type Request struct {
	Target Target
	Seq    uint64
	Vector nutrient.Vector
	Anchor nutrient.Anchor
}

// Outcome is the response to a Request.
type Outcome struct {
	Request Request
	Result  *Result
	Err     error
}

// State is what a target currently displays.
type State struct {
	Target Target
	Phase  Phase
	// Seq is the latest sequence number issued for the target.
	Seq uint64
	// Result is the last successful result. It survives failures.
	Result *Result
	// Err is set when the latest request failed.
	Err error
}

// DisplayScore is the score to show, or nil when there has never been a
// successful result.
func (s State) DisplayScore() *float64 {
	if s.Result == nil {
		return nil
	}
	v := s.Result.PredictedScore
	return &v
}

// Zone classifies DisplayScore.
func (s State) Zone() zone.Zone {
	return zone.Classify(s.DisplayScore())
}

// Stale reports whether the displayed result is older than a failure.
func (s State) Stale() bool {
	return s.Phase == PhaseFailed && s.Result != nil
}
