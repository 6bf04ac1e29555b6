package scoring

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rshade/cvindex/internal/logging"
	"github.com/rshade/cvindex/internal/nutrient"
)

// Listener is told about every state change that is applied.
type Listener func(State)

type targetState struct {
	seq    uint64
	phase  Phase
	result *Result
	err    error
}

// Orchestrator tracks in-flight, settled and failed scoring per target.
// Begin and Settle are cheap and never block, so a cooperative UI loop can
// call them directly and run Execute elsewhere.
type Orchestrator struct {
	mu       sync.Mutex
	scorer   Scorer
	logger   zerolog.Logger
	targets  map[Target]*targetState
	listener Listener
}

// NewOrchestrator creates an Orchestrator backed by scorer.
func NewOrchestrator(scorer Scorer, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		scorer: scorer,
		logger: logging.ComponentLogger(logger, "scoring"),
		targets: map[Target]*targetState{
			TargetCart: {},
			TargetItem: {},
		},
	}
}

// OnChange registers the single listener. Passing nil removes it.
func (o *Orchestrator) OnChange(fn Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listener = fn
}

// Begin issues a new trigger for target, superseding any in-flight one.
func (o *Orchestrator) Begin(target Target, vector nutrient.Vector, anchor nutrient.Anchor) Request {
	o.mu.Lock()
	st := o.stateLocked(target)
	st.seq++
	st.phase = PhaseInFlight
	st.err = nil
	req := Request{Target: target, Seq: st.seq, Vector: vector, Anchor: anchor}
	snapshot, listener := o.snapshotLocked(target), o.listener
	o.mu.Unlock()

	o.logger.Debug().
		Str("target", target.String()).
		Uint64("seq", req.Seq).
		Str("anchor", anchor.WireID()).
		Msg("scoring triggered")
	if listener != nil {
		listener(snapshot)
	}
	return req
}

// Execute calls the remote scorer for req. It touches no state.
func (o *Orchestrator) Execute(ctx context.Context, req Request) Outcome {
	resp, err := o.scorer.Score(ctx, req.Vector, req.Anchor)
	if err != nil {
		return Outcome{Request: req, Err: err}
	}
	return Outcome{Request: req, Result: ResultFromResponse(resp, req.Anchor)}
}

// Settle applies out if it answers the latest trigger for its target and
// reports whether it did. Failures keep the previous result.
func (o *Orchestrator) Settle(out Outcome) bool {
	target := out.Request.Target

	o.mu.Lock()
	st := o.stateLocked(target)
	if out.Request.Seq != st.seq || st.phase != PhaseInFlight {
		latest := st.seq
		o.mu.Unlock()
		o.logger.Debug().
			Str("target", target.String()).
			Uint64("seq", out.Request.Seq).
			Uint64("latest", latest).
			Msg("discarding stale scoring response")
		return false
	}

	if out.Err != nil {
		st.phase = PhaseFailed
		st.err = out.Err
	} else {
		st.phase = PhaseSettled
		st.result = out.Result
		st.err = nil
	}
	snapshot, listener := o.snapshotLocked(target), o.listener
	o.mu.Unlock()

	if out.Err != nil {
		o.logger.Warn().
			Err(out.Err).
			Str("target", target.String()).
			Uint64("seq", out.Request.Seq).
			Bool("kept_previous", snapshot.Result != nil).
			Msg("scoring failed")
	} else {
		o.logger.Debug().
			Str("target", target.String()).
			Uint64("seq", out.Request.Seq).
			Float64("score", out.Result.PredictedScore).
			Msg("scoring settled")
	}
	if listener != nil {
		listener(snapshot)
	}
	return true
}

// Score runs Begin, Execute and Settle in sequence. It returns
// ErrSuperseded if another trigger won meanwhile, otherwise the remote
// error, if any.
func (o *Orchestrator) Score(ctx context.Context, target Target, vector nutrient.Vector, anchor nutrient.Anchor) (State, error) {
	out := o.Execute(ctx, o.Begin(target, vector, anchor))
	if !o.Settle(out) {
		return o.State(target), ErrSuperseded
	}
	return o.State(target), out.Err
}

// Reset clears target's result and error and invalidates any in-flight
// request.
func (o *Orchestrator) Reset(target Target) {
	o.mu.Lock()
	st := o.stateLocked(target)
	st.seq++
	st.phase = PhaseIdle
	st.result = nil
	st.err = nil
	snapshot, listener := o.snapshotLocked(target), o.listener
	o.mu.Unlock()

	o.logger.Debug().Str("target", target.String()).Uint64("seq", snapshot.Seq).Msg("scoring reset")
	if listener != nil {
		listener(snapshot)
	}
}

// State returns target's current state.
func (o *Orchestrator) State(target Target) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked(target)
}

func (o *Orchestrator) stateLocked(target Target) *targetState {
	st, ok := o.targets[target]
	if !ok {
		st = &targetState{}
		o.targets[target] = st
	}
	return st
}

func (o *Orchestrator) snapshotLocked(target Target) State {
	st := o.stateLocked(target)
	return State{
		Target: target,
		Phase:  st.phase,
		Seq:    st.seq,
		Result: st.result,
		Err:    st.err,
	}
}
