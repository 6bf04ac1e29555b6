package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rshade/cvindex/internal/cart"
	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/scoring"
	"github.com/rshade/cvindex/internal/session"
)

const (
	tabMinWidth = 0
	tabWidth    = 2
	tabPadding  = 2
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, tabMinWidth, tabWidth, tabPadding, ' ', 0)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// scoreView is the printable form of one target's score.
type scoreView struct {
	Anchor     nutrient.Anchor `json:"anchor"`
	Score      *float64        `json:"score"`
	Zone       string          `json:"zone"`
	Stale      bool            `json:"stale,omitempty"`
	Error      string          `json:"error,omitempty"`
	Result     *scoring.Result `json:"result,omitempty"`
	Comparison []session.Bar   `json:"comparison,omitempty"`
}

func newScoreView(state scoring.State, anchor nutrient.Anchor) scoreView {
	v := scoreView{
		Anchor:     anchor,
		Score:      state.DisplayScore(),
		Zone:       state.Zone().Label,
		Stale:      state.Stale(),
		Result:     state.Result,
		Comparison: session.Comparison(state.Result),
	}
	if state.Err != nil {
		v.Error = state.Err.Error()
	}
	return v
}

func vectorColumns(v nutrient.Vector) string {
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%s",
		nutrient.FormatGrams(v.Protein),
		nutrient.FormatGrams(v.Fat),
		nutrient.FormatGrams(v.TotalCarbs),
		nutrient.FormatGrams(v.Fiber),
		nutrient.FormatGrams(v.Sugar))
}

const vectorHeader = "PROTEIN\tFAT\tCARBS\tFIBER\tSUGAR"

func renderItemsTable(w io.Writer, items []cart.Item, aggregate *nutrient.Vector) error {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "ITEM\tQTY\t%s\n", vectorHeader)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", it.Name, it.Quantity, vectorColumns(it.Vector))
	}
	if aggregate != nil {
		fmt.Fprintf(tw, "TOTAL\t\t%s\n", vectorColumns(*aggregate))
	}
	return tw.Flush()
}

func renderScore(w io.Writer, title string, v scoreView) error {
	fmt.Fprintf(w, "%s (anchor %s): ", title, v.Anchor.Label())
	switch {
	case v.Score == nil && v.Error != "":
		fmt.Fprintf(w, "unavailable (%s)\n", v.Error)
		return nil
	case v.Score == nil:
		fmt.Fprintln(w, "unavailable")
		return nil
	}
	fmt.Fprintf(w, "%.1f %s", *v.Score, v.Zone)
	if v.Result != nil && v.Result.TierLabel != "" {
		fmt.Fprintf(w, " [%s]", v.Result.TierLabel)
	}
	if v.Stale {
		fmt.Fprintf(w, " (stale: %s)", v.Error)
	}
	fmt.Fprintln(w)

	if len(v.Comparison) == 0 {
		return nil
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "MACRO\tACTUAL\tBALANCED\t")
	for _, b := range v.Comparison {
		mark := ""
		if b.IsAnchor {
			mark = "anchor"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Label, nutrient.FormatGrams(b.Actual), nutrient.FormatGrams(b.Balanced), mark)
	}
	return tw.Flush()
}
