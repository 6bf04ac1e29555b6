// Package acquire runs the flows that turn a label photo or a food name
// into a draft item, and then scores that draft.
//
// The capture, lookup and submit operations share one busy slot: while any
// of them runs, every other invocation (and any draft edit) is refused with
// ErrBusy. A failed flow never touches the draft.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rshade/cvindex/internal/logging"
	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/remote"
	"github.com/rshade/cvindex/internal/scoring"
)

// Busy is the operation currently holding the pipeline.
type Busy int

const (
	// BusyNone means the pipeline is free.
	BusyNone Busy = iota
	// BusyExtracting covers image capture and OCR.
	BusyExtracting
	// BusyLookingUp covers the AI lookup.
	BusyLookingUp
	// BusySubmitting covers the item scoring call.
	BusySubmitting
)

// String returns a short status for display.
func (b Busy) String() string {
	switch b {
	case BusyNone:
		return "idle"
	case BusyExtracting:
		return "extracting label"
	case BusyLookingUp:
		return "looking up food"
	case BusySubmitting:
		return "calculating score"
	}
	return "unknown"
}

// Flow names an entry point, for per-flow errors and notices.
type Flow string

// Flows.
const (
	FlowCapture Flow = "capture"
	FlowLookup  Flow = "lookup"
	FlowSubmit  Flow = "submit"
)

// Notice is a non-blocking notification about a flow.
type Notice struct {
	Flow    Flow
	Failed  bool
	Kind    remote.Kind
	Message string
}

// Extractor is the OCR contract.
type Extractor interface {
	ExtractLabel(ctx context.Context, img remote.Image) (*remote.OCRResponse, error)
}

// Looker is the AI lookup contract.
type Looker interface {
	Lookup(ctx context.Context, foodName string) (*remote.LookupResponse, error)
}

// ItemScorer scores a single-item vector with the current item anchor.
type ItemScorer interface {
	ScoreItem(ctx context.Context, vector nutrient.Vector) (scoring.State, error)
}

// LookupCache short-circuits repeated lookups. Implementations must be
// safe for concurrent use.
type LookupCache interface {
	GetLookup(foodName string) (*remote.LookupResponse, bool)
	PutLookup(foodName string, resp *remote.LookupResponse)
}

// Outcome is the result of a flow that populated the draft.
type Outcome struct {
	Draft Draft
	// Score is the item score state after the automatic submission.
	Score scoring.State
	// ScoreErr is the submission error, if any. The draft stays populated.
	ScoreErr error
}

// Pipeline owns the draft item and the busy slot.
type Pipeline struct {
	extractor Extractor
	looker    Looker
	scorer    ItemScorer
	cache     LookupCache
	logger    zerolog.Logger

	mu     sync.Mutex
	busy   Busy
	draft  Draft
	errs   map[Flow]error
	notify func(Notice)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLookupCache enables lookup caching.
func WithLookupCache(c LookupCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithNotifier sets the notification callback. It is called outside the
// pipeline lock.
func WithNotifier(fn func(Notice)) Option {
	return func(p *Pipeline) { p.notify = fn }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.ComponentLogger(l, "acquire") }
}

// New creates a Pipeline.
func New(extractor Extractor, looker Looker, scorer ItemScorer, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		looker:    looker,
		scorer:    scorer,
		logger:    zerolog.Nop(),
		errs:      make(map[Flow]error),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Busy returns the operation currently running.
func (p *Pipeline) Busy() Busy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

// Draft returns the current draft.
func (p *Pipeline) Draft() Draft {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// Err returns the last error of flow, cleared by its next success.
func (p *Pipeline) Err(flow Flow) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errs[flow]
}

// Capture sends an image region for OCR and populates the draft with the
// per-serving values and serving count, then scores it.
func (p *Pipeline) Capture(ctx context.Context, img remote.Image) (Outcome, error) {
	if err := p.acquire(BusyExtracting); err != nil {
		return Outcome{}, err
	}

	resp, err := p.extractor.ExtractLabel(ctx, img)
	if err != nil {
		p.fail(FlowCapture, fmt.Errorf("label extraction failed: %w", err))
		return Outcome{}, p.Err(FlowCapture)
	}

	p.mu.Lock()
	name := p.draft.Name
	if strings.TrimSpace(name) == "" {
		name = defaultCaptureName
	}
	draft := Draft{
		Name:       name,
		PerServing: resp.PerServing(),
		Servings:   resp.ServingCount(),
		Source:     SourceCapture,
	}
	if vErr := draft.PerServing.Validate(); vErr != nil {
		p.mu.Unlock()
		p.fail(FlowCapture, fmt.Errorf("label extraction returned unusable values: %w: %w", remote.ErrMalformed, vErr))
		return Outcome{}, p.Err(FlowCapture)
	}
	p.populateLocked(FlowCapture, draft)
	p.mu.Unlock()

	p.logger.Info().
		Float64("servings", draft.Servings).
		Msg("label extracted")
	return p.submitHeld(ctx, draft), nil
}

// Lookup asks the AI lookup for one serving of foodName, populates the
// draft, then scores it.
func (p *Pipeline) Lookup(ctx context.Context, foodName string) (Outcome, error) {
	foodName = strings.TrimSpace(foodName)
	if foodName == "" {
		p.recordFailure(FlowLookup, ErrEmptyFoodName)
		return Outcome{}, ErrEmptyFoodName
	}
	if err := p.acquire(BusyLookingUp); err != nil {
		return Outcome{}, err
	}

	resp, cached := p.cachedLookup(foodName)
	if !cached {
		var err error
		resp, err = p.looker.Lookup(ctx, foodName)
		if err != nil {
			p.fail(FlowLookup, fmt.Errorf("lookup of %q failed: %w", foodName, err))
			return Outcome{}, p.Err(FlowLookup)
		}
	}

	draft := Draft{
		Name:       foodName,
		PerServing: resp.Vector(),
		Servings:   1,
		Source:     SourceLookup,
	}
	if vErr := draft.PerServing.Validate(); vErr != nil {
		p.fail(FlowLookup, fmt.Errorf("lookup of %q returned unusable values: %w: %w", foodName, remote.ErrMalformed, vErr))
		return Outcome{}, p.Err(FlowLookup)
	}
	if !cached && p.cache != nil {
		p.cache.PutLookup(foodName, resp)
	}

	p.mu.Lock()
	p.populateLocked(FlowLookup, draft)
	p.mu.Unlock()

	p.logger.Info().Str("food", foodName).Bool("cached", cached).Msg("food looked up")
	return p.submitHeld(ctx, draft), nil
}

// Submit re-scores the current draft. Draft edits never do this on their own.
func (p *Pipeline) Submit(ctx context.Context) (Outcome, error) {
	if err := p.acquire(BusySubmitting); err != nil {
		return Outcome{}, err
	}
	out := p.submitHeld(ctx, p.Draft())
	return out, out.ScoreErr
}

// SetDraft replaces the draft, e.g. from manual entry.
func (p *Pipeline) SetDraft(d Draft) error {
	if err := d.PerServing.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy != BusyNone {
		return fmt.Errorf("%w: %s", ErrBusy, p.busy)
	}
	if d.Source == SourceNone {
		d.Source = SourceManual
	}
	p.draft = d
	return nil
}

// EditDraft applies fn to a copy of the draft and stores it if it is
// still valid. It does not rescore.
func (p *Pipeline) EditDraft(fn func(*Draft)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy != BusyNone {
		return fmt.Errorf("%w: %s", ErrBusy, p.busy)
	}
	d := p.draft
	fn(&d)
	if err := d.PerServing.Validate(); err != nil {
		return err
	}
	p.draft = d
	return nil
}

// ResetDraft empties the draft and clears every flow error.
func (p *Pipeline) ResetDraft() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy != BusyNone {
		return fmt.Errorf("%w: %s", ErrBusy, p.busy)
	}
	p.draft = Draft{}
	p.errs = make(map[Flow]error)
	return nil
}

// acquire claims the busy slot.
func (p *Pipeline) acquire(b Busy) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy != BusyNone {
		return fmt.Errorf("%w: %s", ErrBusy, p.busy)
	}
	p.busy = b
	return nil
}

func (p *Pipeline) release() {
	p.mu.Lock()
	p.busy = BusyNone
	p.mu.Unlock()
}

// submitHeld scores d while the caller holds the busy slot, then frees it.
func (p *Pipeline) submitHeld(ctx context.Context, d Draft) Outcome {
	p.mu.Lock()
	p.busy = BusySubmitting
	p.mu.Unlock()
	defer p.release()

	state, err := p.scorer.ScoreItem(ctx, d.CartVector())
	if errors.Is(err, scoring.ErrSuperseded) {
		// A newer item trigger owns the score now.
		p.logger.Debug().Msg("item score superseded")
		err = nil
	}
	out := Outcome{Draft: d, Score: state, ScoreErr: err}
	if err != nil {
		p.recordFailure(FlowSubmit, fmt.Errorf("item score failed: %w", err))
		return out
	}

	p.mu.Lock()
	delete(p.errs, FlowSubmit)
	p.mu.Unlock()
	return out
}

func (p *Pipeline) populateLocked(flow Flow, d Draft) {
	p.draft = d
	delete(p.errs, flow)
}

func (p *Pipeline) cachedLookup(foodName string) (*remote.LookupResponse, bool) {
	if p.cache == nil {
		return nil, false
	}
	return p.cache.GetLookup(foodName)
}

// fail records a flow failure and frees the busy slot.
func (p *Pipeline) fail(flow Flow, err error) {
	p.release()
	p.recordFailure(flow, err)
}

func (p *Pipeline) recordFailure(flow Flow, err error) {
	p.mu.Lock()
	p.errs[flow] = err
	notify := p.notify
	p.mu.Unlock()

	kind := remote.KindOf(err)
	p.logger.Warn().Err(err).Str("flow", string(flow)).Str("kind", kind.String()).Msg("flow failed")
	if notify != nil {
		notify(Notice{Flow: flow, Failed: true, Kind: kind, Message: err.Error()})
	}
}
