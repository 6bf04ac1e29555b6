package nutrient

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer is the locale-aware message printer for gram formatting.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatGrams renders a gram value with one decimal and thousand separators.
// Example: FormatGrams(1234.56) returns "1,234.6g".
func FormatGrams(g float64) string {
	rounded := math.Round(g*10) / 10
	return printer.Sprintf("%.1fg", rounded)
}
