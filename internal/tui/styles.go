package tui

import "github.com/charmbracelet/lipgloss"

// Palette.
const (
	ColorHeader    = lipgloss.Color("#7D56F4")
	ColorLabel     = lipgloss.Color("#A0A0A0")
	ColorValue     = lipgloss.Color("#FFFFFF")
	ColorMuted     = lipgloss.Color("#626262")
	ColorBorder    = lipgloss.Color("#444444")
	ColorOK        = lipgloss.Color("#2E8B57")
	ColorWarning   = lipgloss.Color("#E6B800")
	ColorError     = lipgloss.Color("#DC143C")
	ColorSpinner   = lipgloss.Color("#7D56F4")
	ColorHighlight = lipgloss.Color("#3C3C5C")
	ColorBalanced  = lipgloss.Color("#5F87AF")
)

// Shared styles.
//
//nolint:gochecknoglobals // Read-only styles.
var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	LabelStyle  = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle  = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	ErrorStyle  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	BoxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorHeader).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(ColorBorder)
	TableSelectedStyle = lipgloss.NewStyle().
				Foreground(ColorValue).
				Background(ColorHighlight).
				Bold(true)
)

// Keys.
const (
	keyQuit    = "q"
	keyCtrlC   = "ctrl+c"
	keyEnter   = "enter"
	keyEsc     = "esc"
	keyLookup  = "l"
	keyManual  = "m"
	keyScan    = "s"
	keySubmit  = "r"
	keyAnchor  = "a"
	keyAnchorI = "A"
	keyPlus    = "+"
	keyMinus   = "-"
	keyDelete  = "d"
	keyClear   = "c"
)
