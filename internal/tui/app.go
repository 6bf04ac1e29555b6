package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/rshade/cvindex/internal/acquire"
	"github.com/rshade/cvindex/internal/cart"
	"github.com/rshade/cvindex/internal/gauge"
	"github.com/rshade/cvindex/internal/logging"
	"github.com/rshade/cvindex/internal/remote"
	"github.com/rshade/cvindex/internal/scoring"
	"github.com/rshade/cvindex/internal/session"
)

// Mode is what the keyboard currently drives.
type Mode int

const (
	// ModeCart is the main view.
	ModeCart Mode = iota
	// ModeLookup reads a food name.
	ModeLookup
	// ModeManual reads an item spec.
	ModeManual
	// ModeScan reads a label image path.
	ModeScan
	// ModeQuitting means the program is exiting.
	ModeQuitting
)

// Dimensions and timing.
const (
	defaultWidth     = 100
	defaultHeight    = 32
	frameInterval    = time.Second / 60
	inputCharLimit   = 120
	inputWidth       = 60
	tableChromeLines = 22
	minTableHeight   = 3
)

// RequestQueue collects scoring requests issued by the session so the
// model can run them as commands. It is the session's Dispatcher.
type RequestQueue struct {
	mu   sync.Mutex
	reqs []scoring.Request
}

// Push enqueues req.
func (q *RequestQueue) Push(req scoring.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reqs = append(q.reqs, req)
}

// Drain returns and forgets every queued request.
func (q *RequestQueue) Drain() []scoring.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.reqs
	q.reqs = nil
	return out
}

// ImageOpener opens a label image for the scan flow.
type ImageOpener func(path string) (remote.Image, io.Closer, error)

// OpenImage opens path and guesses its content type from the extension.
func OpenImage(path string) (remote.Image, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return remote.Image{}, nil, fmt.Errorf("opening image: %w", err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return remote.Image{Filename: filepath.Base(path), ContentType: ct, Data: f}, f, nil
}

// Deps are the collaborators of the App.
type Deps struct {
	Session  *session.Session
	Pipeline *acquire.Pipeline
	Queue    *RequestQueue
	Clock    gauge.Clock
	Gauge    gauge.Options
	Open     ImageOpener
	Logger   zerolog.Logger
}

type frameMsg time.Time

type scoreMsg struct {
	out scoring.Outcome
}

type flowMsg struct {
	flow acquire.Flow
	out  acquire.Outcome
	err  error
}

// App is the interactive cart and gauge view.
type App struct {
	ctx    context.Context
	sess   *session.Session
	pipe   *acquire.Pipeline
	queue  *RequestQueue
	open   ImageOpener
	logger zerolog.Logger

	gauges  map[scoring.Target]*gauge.Motion
	shown   map[scoring.Target]*float64
	ticking bool

	table   table.Model
	input   textinput.Model
	loading *LoadingState
	busy    bool

	mode      Mode
	notice    string
	noticeErr bool

	width  int
	height int
}

// NewApp creates the App. The session must dispatch into deps.Queue.
func NewApp(ctx context.Context, deps Deps) *App {
	open := deps.Open
	if open == nil {
		open = OpenImage
	}
	ti := textinput.New()
	ti.CharLimit = inputCharLimit
	ti.Width = inputWidth

	a := &App{
		ctx:    ctx,
		sess:   deps.Session,
		pipe:   deps.Pipeline,
		queue:  deps.Queue,
		open:   open,
		logger: logging.ComponentLogger(deps.Logger, "tui"),
		gauges: map[scoring.Target]*gauge.Motion{
			scoring.TargetCart: gauge.New(deps.Clock, deps.Gauge),
			scoring.TargetItem: gauge.New(deps.Clock, deps.Gauge),
		},
		shown:   make(map[scoring.Target]*float64),
		input:   ti,
		loading: NewLoadingState(),
		width:   defaultWidth,
		height:  defaultHeight,
	}
	a.table = NewCartTable(a.sess.Cart().Items(), a.tableHeight())
	return a
}

// Init runs any scoring queued before the program started.
func (a *App) Init() tea.Cmd {
	cmds := a.scoreCmds()
	cmds = append(cmds, a.syncGauges())
	return tea.Batch(cmds...)
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.table.SetHeight(a.tableHeight())

	case frameMsg:
		if a.anyAnimating() {
			return a, frameTick()
		}
		a.ticking = false
		return a, nil

	case scoreMsg:
		if !a.sess.Orchestrator().Settle(msg.out) {
			a.logger.Debug().Str("target", msg.out.Request.Target.String()).Msg("stale score discarded")
		}

	case flowMsg:
		a.busy = false
		a.handleFlow(msg)

	case spinner.TickMsg:
		if a.busy {
			cmds = append(cmds, a.loading.Update(msg))
		}

	case tea.KeyMsg:
		cmd := a.handleKey(msg)
		if a.mode == ModeQuitting {
			return a, tea.Quit
		}
		cmds = append(cmds, cmd)

	default:
		if a.mode != ModeCart {
			var cmd tea.Cmd
			a.input, cmd = a.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, a.scoreCmds()...)
	cmds = append(cmds, a.syncGauges())
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == keyCtrlC {
		a.mode = ModeQuitting
		return nil
	}
	if a.mode != ModeCart {
		return a.handleInputKey(msg)
	}

	switch msg.String() {
	case keyQuit:
		a.mode = ModeQuitting
	case keyLookup:
		a.startInput(ModeLookup, "food name, e.g. banana")
		return textinput.Blink
	case keyManual:
		a.startInput(ModeManual, "name:protein,fat,carbs,fiber,sugar[xservings]")
		return textinput.Blink
	case keyScan:
		a.startInput(ModeScan, "path to a nutrition label image")
		return textinput.Blink
	case keyEnter:
		a.confirmDraft()
	case keySubmit:
		return a.startFlow(acquire.FlowSubmit, a.submitCmd())
	case keyAnchor:
		a.report(a.sess.SetCartAnchor(a.sess.CartAnchor().Next()), "")
	case keyAnchorI:
		a.report(a.sess.SetItemAnchor(a.sess.ItemAnchor().Next()), "")
	case keyPlus, "=":
		a.bumpQuantity(1)
	case keyMinus:
		a.bumpQuantity(-1)
	case keyDelete, "x":
		if it, ok := a.selected(); ok {
			a.report(a.sess.Cart().Remove(it.ID), "Removed "+it.Name)
			a.refreshTable()
		}
	case keyClear:
		a.sess.Cart().Clear()
		a.refreshTable()
		a.setNotice("Cart cleared", false)
	default:
		var cmd tea.Cmd
		a.table, cmd = a.table.Update(msg)
		return cmd
	}
	return nil
}

func (a *App) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case keyEsc:
		a.endInput()
		return nil
	case keyEnter:
		mode, value := a.mode, strings.TrimSpace(a.input.Value())
		a.endInput()
		return a.submitInput(mode, value)
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return cmd
}

func (a *App) submitInput(mode Mode, value string) tea.Cmd {
	switch mode {
	case ModeLookup:
		return a.startFlow(acquire.FlowLookup, a.lookupCmd(value))
	case ModeScan:
		return a.startFlow(acquire.FlowCapture, a.scanCmd(value))
	case ModeManual:
		spec, err := cart.ParseSpec(value)
		if err != nil {
			a.setNotice(err.Error(), true)
			return nil
		}
		d := acquire.Draft{Name: spec.Name, PerServing: spec.Vector, Servings: spec.Count, Source: acquire.SourceManual}
		if err := a.pipe.SetDraft(d); err != nil {
			a.setNotice(err.Error(), true)
			return nil
		}
		return a.startFlow(acquire.FlowSubmit, a.submitCmd())
	}
	return nil
}

func (a *App) startInput(mode Mode, placeholder string) {
	a.mode = mode
	a.input.Reset()
	a.input.Placeholder = placeholder
	a.input.Focus()
}

func (a *App) endInput() {
	a.mode = ModeCart
	a.input.Blur()
}

// startFlow marks the pipeline busy in the view and starts the spinner.
func (a *App) startFlow(flow acquire.Flow, cmd tea.Cmd) tea.Cmd {
	if a.busy {
		a.setNotice(acquire.ErrBusy.Error(), true)
		return nil
	}
	a.busy = true
	a.loading.SetMessage(string(flow) + "…")
	return tea.Batch(cmd, a.loading.Init())
}

func (a *App) lookupCmd(name string) tea.Cmd {
	ctx, pipe := a.ctx, a.pipe
	return func() tea.Msg {
		out, err := pipe.Lookup(ctx, name)
		return flowMsg{flow: acquire.FlowLookup, out: out, err: err}
	}
}

func (a *App) scanCmd(path string) tea.Cmd {
	ctx, pipe, open := a.ctx, a.pipe, a.open
	return func() tea.Msg {
		img, closer, err := open(path)
		if err != nil {
			return flowMsg{flow: acquire.FlowCapture, err: err}
		}
		defer func() { _ = closer.Close() }()
		out, err := pipe.Capture(ctx, img)
		return flowMsg{flow: acquire.FlowCapture, out: out, err: err}
	}
}

func (a *App) submitCmd() tea.Cmd {
	ctx, pipe := a.ctx, a.pipe
	return func() tea.Msg {
		out, err := pipe.Submit(ctx)
		return flowMsg{flow: acquire.FlowSubmit, out: out, err: err}
	}
}

func (a *App) handleFlow(msg flowMsg) {
	switch {
	case msg.err != nil && !errors.Is(msg.err, scoring.ErrSuperseded):
		a.setNotice(msg.err.Error(), true)
	case msg.out.ScoreErr != nil && !errors.Is(msg.out.ScoreErr, scoring.ErrSuperseded):
		a.setNotice("item score failed: "+msg.out.ScoreErr.Error(), true)
	case msg.flow == acquire.FlowSubmit:
		a.setNotice("Draft rescored", false)
	default:
		a.setNotice(fmt.Sprintf("Draft ready: %s (enter adds it to the cart)", msg.out.Draft.Name), false)
	}
}

func (a *App) confirmDraft() {
	if a.busy {
		a.setNotice(acquire.ErrBusy.Error(), true)
		return
	}
	item, err := a.sess.ConfirmDraft(a.pipe, 1)
	if err != nil {
		a.setNotice(err.Error(), true)
		return
	}
	a.refreshTable()
	a.setNotice("Added "+item.Name, false)
}

func (a *App) bumpQuantity(delta int) {
	it, ok := a.selected()
	if !ok {
		return
	}
	_, err := a.sess.Cart().UpdateQuantity(it.ID, it.Quantity+delta)
	a.report(err, "")
	a.refreshTable()
}

func (a *App) selected() (cart.Item, bool) {
	items := a.sess.Cart().Items()
	i := a.table.Cursor()
	if i < 0 || i >= len(items) {
		return cart.Item{}, false
	}
	return items[i], true
}

func (a *App) refreshTable() {
	a.table.SetRows(CartRows(a.sess.Cart().Items()))
	if n := len(a.table.Rows()); a.table.Cursor() >= n && n > 0 {
		a.table.SetCursor(n - 1)
	}
}

func (a *App) report(err error, success string) {
	switch {
	case err != nil:
		a.setNotice(err.Error(), true)
	case success != "":
		a.setNotice(success, false)
	}
}

func (a *App) setNotice(text string, isErr bool) {
	a.notice, a.noticeErr = text, isErr
	if isErr {
		a.logger.Warn().Msg(text)
	}
}

// scoreCmds turns queued scoring requests into commands.
func (a *App) scoreCmds() []tea.Cmd {
	if a.queue == nil {
		return nil
	}
	reqs := a.queue.Drain()
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, a.scoreCmd(req))
	}
	return cmds
}

func (a *App) scoreCmd(req scoring.Request) tea.Cmd {
	ctx, orch := a.ctx, a.sess.Orchestrator()
	return func() tea.Msg {
		return scoreMsg{out: orch.Execute(ctx, req)}
	}
}

// syncGauges retargets gauges whose displayed score changed and starts the
// frame ticker if any of them now animates.
func (a *App) syncGauges() tea.Cmd {
	for target, g := range a.gauges {
		score := a.sess.Orchestrator().State(target).DisplayScore()
		if sameScore(a.shown[target], score) {
			continue
		}
		a.shown[target] = score
		g.SetTarget(score)
	}
	if a.ticking || !a.anyAnimating() {
		return nil
	}
	a.ticking = true
	return frameTick()
}

func (a *App) anyAnimating() bool {
	for _, g := range a.gauges {
		if g.Animating() {
			return true
		}
	}
	return false
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (a *App) tableHeight() int {
	return max(a.height-tableChromeLines, minTableHeight)
}

// View renders the whole screen.
func (a *App) View() string {
	if a.mode == ModeQuitting {
		return ""
	}
	orch := a.sess.Orchestrator()
	cartState, itemState := orch.State(scoring.TargetCart), orch.State(scoring.TargetItem)

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("Castle Verde Index"))
	sb.WriteString("\n\n")

	sb.WriteString(RenderGauge("Cart", a.gauges[scoring.TargetCart].Frame(), a.width))
	sb.WriteString("\n")
	sb.WriteString(anchorLine(a.sess.CartAnchor().Label(), RenderScoreStatus(cartState)))
	sb.WriteString("\n\n")

	sb.WriteString(RenderGauge("Item", a.gauges[scoring.TargetItem].Frame(), a.width))
	sb.WriteString("\n")
	sb.WriteString(anchorLine(a.sess.ItemAnchor().Label(), RenderScoreStatus(itemState)))
	sb.WriteString("\n\n")

	sb.WriteString(RenderDraft(a.pipe.Draft()))
	sb.WriteString("\n\n")

	if cmp := RenderComparison(session.Comparison(cartState.Result), a.width); cmp != "" {
		sb.WriteString(cmp)
		sb.WriteString("\n\n")
	}

	sb.WriteString(a.table.View())
	sb.WriteString("\n")
	sb.WriteString(RenderAggregate(a.sess.Cart().Aggregate()))
	sb.WriteString("\n\n")

	if a.mode != ModeCart {
		sb.WriteString(a.input.View())
		sb.WriteString("\n")
	}
	switch {
	case a.busy:
		sb.WriteString(a.loading.View())
		sb.WriteString("\n")
	case a.notice != "" && a.noticeErr:
		sb.WriteString(ErrorStyle.Render(a.notice))
		sb.WriteString("\n")
	case a.notice != "":
		sb.WriteString(ValueStyle.Render(a.notice))
		sb.WriteString("\n")
	}
	sb.WriteString(RenderHelp(a.mode))
	return sb.String()
}

func anchorLine(anchor, status string) string {
	line := LabelStyle.Render("       anchor: ") + ValueStyle.Render(anchor)
	if status != "" {
		line += "  " + status
	}
	return line
}
