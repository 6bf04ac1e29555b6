package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/rshade/cvindex/internal/cart"
	"github.com/rshade/cvindex/internal/nutrient"
)

const (
	maxNameDisplayLen = 24
	truncateSuffix    = "..."
)

// NewCartTable builds the cart item table.
func NewCartTable(items []cart.Item, height int) table.Model {
	columns := []table.Column{
		{Title: "Item", Width: maxNameDisplayLen},
		{Title: "Qty", Width: 4},      //nolint:mnd // Column width.
		{Title: "Protein", Width: 9},  //nolint:mnd // Column width.
		{Title: "Fat", Width: 9},      //nolint:mnd // Column width.
		{Title: "Carbs", Width: 9},    //nolint:mnd // Column width.
		{Title: "Fiber", Width: 9},    //nolint:mnd // Column width.
		{Title: "Sugar", Width: 9},    //nolint:mnd // Column width.
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(CartRows(items)),
		table.WithFocused(true),
		table.WithHeight(max(height, 1)),
	)
	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)
	return t
}

// CartRows converts items to table rows. Values are per unit.
func CartRows(items []cart.Item) []table.Row {
	rows := make([]table.Row, len(items))
	for i, it := range items {
		rows[i] = table.Row{
			truncate(it.Name),
			fmt.Sprintf("%d", it.Quantity),
			nutrient.FormatGrams(it.Vector.Protein),
			nutrient.FormatGrams(it.Vector.Fat),
			nutrient.FormatGrams(it.Vector.TotalCarbs),
			nutrient.FormatGrams(it.Vector.Fiber),
			nutrient.FormatGrams(it.Vector.Sugar),
		}
	}
	return rows
}

// RenderAggregate shows the cart totals.
func RenderAggregate(agg *nutrient.Vector) string {
	if agg == nil {
		return MutedStyle.Render("Cart is empty.")
	}
	return LabelStyle.Render("Total  ") + RenderVector(*agg)
}

func truncate(name string) string {
	r := []rune(name)
	if len(r) <= maxNameDisplayLen {
		return name
	}
	return string(r[:maxNameDisplayLen-len(truncateSuffix)]) + truncateSuffix
}

// RenderHelp lists the key bindings for the current mode.
func RenderHelp(mode Mode) string {
	var shortcuts []string
	switch mode {
	case ModeCart:
		shortcuts = []string{
			"l: lookup", "s: scan", "m: manual", "enter: add draft", "r: rescore draft",
			"a/A: cart/item anchor", "+/-: qty", "d: remove", "c: clear", "q: quit",
		}
	default:
		shortcuts = []string{"enter: submit", "esc: cancel"}
	}
	return MutedStyle.Render(strings.Join(shortcuts, " | "))
}
