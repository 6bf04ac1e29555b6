package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/cvindex/internal/acquire"
	"github.com/rshade/cvindex/internal/gauge"
	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/scoring"
	"github.com/rshade/cvindex/internal/session"
	"github.com/rshade/cvindex/internal/zone"
)

// Layout constants.
const (
	minBarWidth      = 20
	gaugeLabelWidth  = 6
	compareLabelWide = 12
	gaugeReserved    = 28
	compareReserved  = 34
	cellFilled       = "█"
	cellEmpty        = "░"
	needleMark       = "▲"
)

// RenderZoneBadge renders the zone label on its own color.
func RenderZoneBadge(z zone.Zone) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(z.Color)).
		Foreground(lipgloss.Color("#000000")).
		Bold(true).
		Padding(0, 1).
		Render(z.Label)
}

// RenderGauge draws a horizontal dial over [0, 50]. Each cell takes the
// color of the zone it covers, cells up to the value are filled, and the
// needle sits under the current value.
func RenderGauge(title string, r gauge.Reading, width int) string {
	barWidth := max(width-gaugeReserved, minBarWidth)

	var bar strings.Builder
	for i := range barWidth {
		cellScore := (float64(i) + 0.5) / float64(barWidth) * zone.MaxScore
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(zone.ClassifyValue(cellScore).Color))
		if !r.Available || cellScore > r.Value {
			bar.WriteString(style.Faint(true).Render(cellEmpty))
			continue
		}
		bar.WriteString(style.Render(cellFilled))
	}

	label := LabelStyle.Width(gaugeLabelWidth).Render(title)
	value := MutedStyle.Render("  --")
	secondary := ""
	if r.Available {
		value = ValueStyle.Render(fmt.Sprintf("%4.1f", r.Value))
		secondary = MutedStyle.Render(fmt.Sprintf(" ≈%.1f", r.Secondary))
	}

	top := fmt.Sprintf("%s %s %s %s%s", label, bar.String(), value, RenderZoneBadge(r.Zone), secondary)
	if !r.Available {
		return top
	}

	pos := needlePosition(r.Value, barWidth)
	needle := strings.Repeat(" ", gaugeLabelWidth+1+pos) + lipgloss.NewStyle().Foreground(lipgloss.Color(r.Zone.Color)).Render(needleMark)
	return top + "\n" + needle
}

// needlePosition maps a score to a cell index.
func needlePosition(value float64, barWidth int) int {
	pos := int(math.Round(zone.Clamp(value) / zone.MaxScore * float64(barWidth-1)))
	return min(max(pos, 0), barWidth-1)
}

// RenderScoreStatus describes the phase of a scoring target.
func RenderScoreStatus(st scoring.State) string {
	switch {
	case st.Phase == scoring.PhaseInFlight:
		return MutedStyle.Render("updating…")
	case st.Stale():
		return ErrorStyle.Render("stale") + MutedStyle.Render(": "+st.Err.Error())
	case st.Phase == scoring.PhaseFailed:
		return ErrorStyle.Render("score unavailable") + MutedStyle.Render(": "+st.Err.Error())
	case st.Result != nil && st.Result.TierLabel != "":
		return MutedStyle.Render("scorer tier: " + st.Result.TierLabel)
	}
	return ""
}

// RenderVector lists the five macros of v.
func RenderVector(v nutrient.Vector) string {
	parts := make([]string, 0, len(nutrient.Anchors()))
	for _, f := range v.Fields() {
		parts = append(parts, LabelStyle.Render(f.Anchor.Label()+" ")+ValueStyle.Render(nutrient.FormatGrams(f.Grams)))
	}
	return strings.Join(parts, MutedStyle.Render(" · "))
}

// RenderDraft shows the draft item with its per-serving and cart values.
func RenderDraft(d acquire.Draft) string {
	if d.Empty() {
		return MutedStyle.Render("No draft item. l: lookup  s: scan label  m: manual entry")
	}
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("Draft "))
	sb.WriteString(ValueStyle.Render(d.Name))
	if d.Source != acquire.SourceNone {
		sb.WriteString(MutedStyle.Render(" (" + string(d.Source) + ")"))
	}
	sb.WriteString("\n  ")
	sb.WriteString(LabelStyle.Render("per serving: "))
	sb.WriteString(RenderVector(d.PerServing))
	if n := d.ServingCount(); n != 1 {
		sb.WriteString("\n  ")
		sb.WriteString(LabelStyle.Render(fmt.Sprintf("× %g servings: ", n)))
		sb.WriteString(RenderVector(d.CartVector()))
	}
	return sb.String()
}

// RenderComparison draws actual vs balanced bars per macro. The anchor row
// is marked.
func RenderComparison(bars []session.Bar, width int) string {
	if len(bars) == 0 {
		return ""
	}
	barWidth := max((width-compareReserved)/2, minBarWidth/2)
	actualStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	balancedStyle := lipgloss.NewStyle().Foreground(ColorBalanced)

	var sb strings.Builder
	sb.WriteString(LabelStyle.Render(fmt.Sprintf("%-*s", compareLabelWide, "")))
	sb.WriteString(actualStyle.Render(fmt.Sprintf("%-*s", barWidth+1, "actual")))
	sb.WriteString(balancedStyle.Render("balanced"))
	for _, b := range bars {
		sb.WriteString("\n")
		label := b.Label
		if b.IsAnchor {
			label = "▸ " + label
		}
		sb.WriteString(LabelStyle.Render(fmt.Sprintf("%-*s", compareLabelWide, label)))
		sb.WriteString(actualStyle.Render(fillBar(b.Fraction(b.Actual), barWidth)))
		sb.WriteString(" ")
		sb.WriteString(balancedStyle.Render(fillBar(b.Fraction(b.Balanced), barWidth)))
		sb.WriteString(MutedStyle.Render(fmt.Sprintf(" %s / %s", nutrient.FormatGrams(b.Actual), nutrient.FormatGrams(b.Balanced))))
	}
	return sb.String()
}

// fillBar renders fraction of width as filled cells, padded to width.
func fillBar(fraction float64, width int) string {
	n := int(math.Round(math.Min(math.Max(fraction, 0), 1) * float64(width)))
	return strings.Repeat(cellFilled, n) + strings.Repeat(" ", width-n)
}
