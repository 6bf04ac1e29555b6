// Package gauge animates a displayed score toward a target score.
//
// The engine holds no timers. A frame source (the TUI's tick, or a test)
// asks for a Reading once per refresh, and the engine interpolates from
// the injected Clock. When nothing asks, nothing moves.
package gauge

import (
	"math"
	"sync"
	"time"

	"github.com/rshade/cvindex/internal/zone"
)

// Default animation tuning.
const (
	DefaultPerPoint       = 40 * time.Millisecond
	DefaultMaxDuration    = 800 * time.Millisecond
	DefaultSecondaryRatio = 0.75

	needleSweepDegrees = 180.0
	needleStartDegrees = -90.0
)

// Options tunes the animation.
type Options struct {
	// PerPoint is the animation time per score point of distance.
	PerPoint time.Duration
	// MaxDuration caps the animation length.
	MaxDuration time.Duration
	// SecondaryRatio scales the primary value into the secondary readout.
	SecondaryRatio float64
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		PerPoint:       DefaultPerPoint,
		MaxDuration:    DefaultMaxDuration,
		SecondaryRatio: DefaultSecondaryRatio,
	}
}

// Reading is what a gauge shows on one frame.
type Reading struct {
	// Available is false until a score has been set.
	Available bool
	Value     float64
	// Secondary is SecondaryRatio × Value, from the same interpolated value.
	Secondary float64
	Target    float64
	Zone      zone.Zone
	// NeedleAngle maps [0,50] onto [-90°, 90°].
	NeedleAngle float64
	Animating   bool
}

// Motion is the animation state of a single gauge.
type Motion struct {
	mu    sync.Mutex
	clock Clock
	opts  Options

	hasValue bool
	from     float64
	target   float64
	start    time.Time
	duration time.Duration
}

// New creates an idle Motion. A nil clock uses the wall clock; zero-valued
// options fall back to the defaults.
func New(clock Clock, opts Options) *Motion {
	if clock == nil {
		clock = SystemClock{}
	}
	def := DefaultOptions()
	if opts.PerPoint <= 0 {
		opts.PerPoint = def.PerPoint
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = def.MaxDuration
	}
	if opts.SecondaryRatio <= 0 {
		opts.SecondaryRatio = def.SecondaryRatio
	}
	return &Motion{clock: clock, opts: opts}
}

// SetTarget points the gauge at a new score.
//
// The first score is shown immediately. Every later score animates from
// whatever is on screen right now, including a value mid-animation. A nil
// score returns the gauge to idle so the next score is again shown
// immediately.
func (m *Motion) SetTarget(score *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if score == nil {
		m.hasValue = false
		m.duration = 0
		return
	}

	now := m.clock.Now()
	target := zone.Clamp(*score)

	if !m.hasValue {
		m.hasValue = true
		m.from = target
		m.target = target
		m.start = now
		m.duration = 0
		return
	}

	current := m.valueAtLocked(now)
	m.from = current
	m.target = target
	m.start = now
	m.duration = Duration(math.Abs(target-current), m.opts)
}

// Duration returns the animation length for a jump of distance points.
func Duration(distance float64, opts Options) time.Duration {
	d := time.Duration(distance * float64(opts.PerPoint))
	if d > opts.MaxDuration {
		return opts.MaxDuration
	}
	if d < 0 {
		return 0
	}
	return d
}

// EaseOut decelerates into the final value: 1 − (1 − p)².
func EaseOut(p float64) float64 {
	inv := 1 - p
	return 1 - inv*inv
}

// Frame returns the reading for the current clock time.
func (m *Motion) Frame() Reading {
	return m.FrameAt(m.clock.Now())
}

// FrameAt returns the reading at the given time.
func (m *Motion) FrameAt(now time.Time) Reading {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasValue {
		return Reading{Zone: zone.Classify(nil), NeedleAngle: needleStartDegrees}
	}

	value := m.valueAtLocked(now)
	return Reading{
		Available:   true,
		Value:       value,
		Secondary:   value * m.opts.SecondaryRatio,
		Target:      m.target,
		Zone:        zone.ClassifyValue(value),
		NeedleAngle: NeedleAngle(value),
		Animating:   m.animatingLocked(now),
	}
}

// Animating reports whether a frame source still needs to tick.
func (m *Motion) Animating() bool {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasValue && m.animatingLocked(now)
}

func (m *Motion) animatingLocked(now time.Time) bool {
	return m.duration > 0 && now.Sub(m.start) < m.duration
}

func (m *Motion) valueAtLocked(now time.Time) float64 {
	if !m.animatingLocked(now) {
		return m.target
	}
	elapsed := now.Sub(m.start)
	if elapsed < 0 {
		return zone.Clamp(m.from)
	}
	p := float64(elapsed) / float64(m.duration)
	return zone.Clamp(m.from + (m.target-m.from)*EaseOut(p))
}

// NeedleAngle maps a score onto the dial, clamping to the scale.
func NeedleAngle(score float64) float64 {
	return needleStartDegrees + zone.Clamp(score)/zone.MaxScore*needleSweepDegrees
}
