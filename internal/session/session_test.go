package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cvindex/internal/acquire"
	"github.com/rshade/cvindex/internal/cart"
	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/remote"
	"github.com/rshade/cvindex/internal/scoring"
)

type call struct {
	vector nutrient.Vector
	anchor nutrient.Anchor
}

// recordingScorer scores a vector as its total carbs.
type recordingScorer struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (r *recordingScorer) Score(_ context.Context, v nutrient.Vector, a nutrient.Anchor) (*remote.ScoreResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{v, a})
	if r.err != nil {
		return nil, r.err
	}
	return &remote.ScoreResponse{PredictedSpike: v.TotalCarbs, InputData: v, BalancedMacros: v.Scale(0.5)}, nil
}

func (r *recordingScorer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newSession(t *testing.T, sc *recordingScorer, opts ...Option) *Session {
	t.Helper()
	s := New(cart.NewStore(), scoring.NewOrchestrator(sc, zerolog.Nop()), opts...)
	t.Cleanup(s.Close)
	return s
}

func TestCartChangesTriggerCartScore(t *testing.T) {
	sc := &recordingScorer{}
	s := newSession(t, sc)

	_, err := s.AddItem("Oatmeal", nutrient.Vector{Protein: 10, Fat: 5, TotalCarbs: 20, Fiber: 2, Sugar: 5}, 1)
	require.NoError(t, err)
	_, err = s.AddItem("Yogurt", nutrient.Vector{Protein: 5, Fat: 2, TotalCarbs: 10, Fiber: 1, Sugar: 2}, 2)
	require.NoError(t, err)

	require.Equal(t, 2, sc.count())
	last := sc.calls[1]
	assert.True(t, last.vector.Equal(nutrient.Vector{Protein: 20, Fat: 9, TotalCarbs: 40, Fiber: 4, Sugar: 9}))
	assert.Equal(t, nutrient.AnchorProtein, last.anchor)

	st := s.Orchestrator().State(scoring.TargetCart)
	assert.Equal(t, scoring.PhaseSettled, st.Phase)
	require.NotNil(t, st.DisplayScore())
	assert.Equal(t, 40.0, *st.DisplayScore())
}

func TestEmptyCartResetsWithoutRemoteCall(t *testing.T) {
	sc := &recordingScorer{}
	s := newSession(t, sc)

	item, err := s.AddItem("Apple", nutrient.Vector{TotalCarbs: 25}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, sc.count())

	require.NoError(t, s.Cart().Remove(item.ID))
	assert.Equal(t, 1, sc.count())
	st := s.Orchestrator().State(scoring.TargetCart)
	assert.Equal(t, scoring.PhaseIdle, st.Phase)
	assert.Nil(t, st.DisplayScore())
}

func TestClearCartResets(t *testing.T) {
	sc := &recordingScorer{}
	s := newSession(t, sc)
	_, err := s.AddItem("Apple", nutrient.Vector{TotalCarbs: 25}, 1)
	require.NoError(t, err)

	s.Cart().Clear()
	assert.Nil(t, s.Orchestrator().State(scoring.TargetCart).DisplayScore())
	assert.Equal(t, 1, sc.count())
}

func TestQuantityChangeRescores(t *testing.T) {
	sc := &recordingScorer{}
	s := newSession(t, sc)
	item, err := s.AddItem("Rice", nutrient.Vector{TotalCarbs: 10}, 1)
	require.NoError(t, err)

	_, err = s.Cart().UpdateQuantity(item.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 2, sc.count())
	assert.Equal(t, 30.0, sc.calls[1].vector.TotalCarbs)
}

func TestSetCartAnchorRescores(t *testing.T) {
	sc := &recordingScorer{}
	s := newSession(t, sc)

	require.NoError(t, s.SetCartAnchor(nutrient.AnchorFat))
	assert.Equal(t, 0, sc.count(), "empty cart is not scored")

	_, err := s.AddItem("Bacon", nutrient.Vector{Fat: 12, Protein: 6}, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetCartAnchor(nutrient.AnchorSugar))

	require.Equal(t, 2, sc.count())
	assert.Equal(t, nutrient.AnchorFat, sc.calls[0].anchor)
	assert.Equal(t, nutrient.AnchorSugar, sc.calls[1].anchor)
	assert.Equal(t, nutrient.AnchorSugar, s.CartAnchor())
	assert.Equal(t, nutrient.AnchorProtein, s.ItemAnchor())

	err = s.SetCartAnchor("Sodium")
	assert.True(t, errors.Is(err, nutrient.ErrUnknownAnchor))
}

func TestDeferredDispatchDiscardsStale(t *testing.T) {
	sc := &recordingScorer{}
	var queued []scoring.Request
	s := newSession(t, sc, WithDispatcher(func(req scoring.Request) { queued = append(queued, req) }))

	_, err := s.AddItem("A", nutrient.Vector{TotalCarbs: 5}, 1)
	require.NoError(t, err)
	_, err = s.AddItem("B", nutrient.Vector{TotalCarbs: 7}, 1)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, scoring.PhaseInFlight, s.Orchestrator().State(scoring.TargetCart).Phase)

	// The newer request lands first, the older one is discarded.
	assert.True(t, s.Run(context.Background(), queued[1]))
	assert.False(t, s.Run(context.Background(), queued[0]))

	st := s.Orchestrator().State(scoring.TargetCart)
	require.NotNil(t, st.DisplayScore())
	assert.Equal(t, 12.0, *st.DisplayScore())
}

func TestScoreItemAndItemAnchor(t *testing.T) {
	sc := &recordingScorer{}
	s := newSession(t, sc, WithAnchors(nutrient.AnchorFiber, nutrient.AnchorFat))
	assert.Equal(t, nutrient.AnchorFiber, s.CartAnchor())

	require.NoError(t, s.SetItemAnchor(nutrient.AnchorSugar))
	assert.Equal(t, 0, sc.count(), "no item vector yet")

	st, err := s.ScoreItem(context.Background(), nutrient.Vector{TotalCarbs: 18})
	require.NoError(t, err)
	assert.Equal(t, 18.0, *st.DisplayScore())
	assert.Equal(t, nutrient.AnchorSugar, sc.calls[0].anchor)

	require.NoError(t, s.SetItemAnchor(nutrient.AnchorProtein))
	require.Equal(t, 2, sc.count())
	assert.Equal(t, nutrient.AnchorProtein, sc.calls[1].anchor)
	assert.Equal(t, 18.0, sc.calls[1].vector.TotalCarbs)
	assert.Equal(t, 0, len(s.Cart().Items()), "item scoring does not touch the cart")
}

type fixedLooker struct{ resp *remote.LookupResponse }

func (f fixedLooker) Lookup(context.Context, string) (*remote.LookupResponse, error) {
	return f.resp, nil
}

type fixedExtractor struct{ resp *remote.OCRResponse }

func (f fixedExtractor) ExtractLabel(context.Context, remote.Image) (*remote.OCRResponse, error) {
	return f.resp, nil
}

func TestConfirmDraftAddsScaledVector(t *testing.T) {
	sc := &recordingScorer{}
	s := newSession(t, sc)
	ocr := fixedExtractor{resp: &remote.OCRResponse{
		TotalCarbohydrate: remote.FlexFloat{Value: 10, Set: true},
		Servings:          remote.FlexFloat{Value: 2, Set: true},
	}}
	p := acquire.New(ocr, fixedLooker{}, s)

	out, err := p.Capture(context.Background(), remote.Image{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, out.Draft.PerServing.TotalCarbs)
	assert.Equal(t, 20.0, *out.Score.DisplayScore())

	item, err := s.ConfirmDraft(p, 1)
	require.NoError(t, err)
	assert.Equal(t, 20.0, item.Vector.TotalCarbs)
	assert.True(t, p.Draft().Empty())
	assert.Nil(t, s.Orchestrator().State(scoring.TargetItem).DisplayScore())
	assert.Equal(t, 20.0, *s.Orchestrator().State(scoring.TargetCart).DisplayScore())

	_, err = s.ConfirmDraft(p, 1)
	assert.True(t, errors.Is(err, ErrNoDraft))
}

func TestCartScoreFailureKeepsPreviousResult(t *testing.T) {
	sc := &recordingScorer{}
	s := newSession(t, sc)
	_, err := s.AddItem("A", nutrient.Vector{TotalCarbs: 5}, 1)
	require.NoError(t, err)

	sc.mu.Lock()
	sc.err = remote.ErrTransport
	sc.mu.Unlock()
	_, err = s.AddItem("B", nutrient.Vector{TotalCarbs: 7}, 1)
	require.NoError(t, err)

	st := s.Orchestrator().State(scoring.TargetCart)
	assert.Equal(t, scoring.PhaseFailed, st.Phase)
	assert.True(t, st.Stale())
	assert.Equal(t, 5.0, *st.DisplayScore())
}

// gatedScorer blocks its first call until release is closed.
type gatedScorer struct {
	recordingScorer
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedScorer) Score(ctx context.Context, v nutrient.Vector, a nutrient.Anchor) (*remote.ScoreResponse, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.recordingScorer.Score(ctx, v, a)
}

func TestItemAnchorChangeDuringSubmitIsNotAFailure(t *testing.T) {
	sc := &gatedScorer{entered: make(chan struct{}), release: make(chan struct{})}
	s := New(cart.NewStore(), scoring.NewOrchestrator(sc, zerolog.Nop()))
	t.Cleanup(s.Close)

	var (
		mu      sync.Mutex
		notices []acquire.Notice
	)
	p := acquire.New(fixedExtractor{}, fixedLooker{}, s, acquire.WithNotifier(func(n acquire.Notice) {
		mu.Lock()
		notices = append(notices, n)
		mu.Unlock()
	}))
	require.NoError(t, p.SetDraft(acquire.Draft{Name: "Rice", PerServing: nutrient.Vector{TotalCarbs: 30}}))

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background())
		done <- err
	}()

	<-sc.entered
	require.NoError(t, s.SetItemAnchor(nutrient.AnchorFiber))
	close(sc.release)
	require.NoError(t, <-done)

	assert.NoError(t, p.Err(acquire.FlowSubmit))
	mu.Lock()
	assert.Empty(t, notices)
	mu.Unlock()

	st := s.Orchestrator().State(scoring.TargetItem)
	assert.Equal(t, scoring.PhaseSettled, st.Phase)
	require.NotNil(t, st.Result)
	assert.Equal(t, nutrient.AnchorFiber, st.Result.Anchor)
	assert.Equal(t, 30.0, *st.DisplayScore())
}
