package cart

import (
	"sort"

	"github.com/rshade/cvindex/internal/nutrient"
)

// Aggregate sums Vector × Quantity over items. It is a full reduction on
// every call; nothing is carried between calls. Returns nil for no items.
//
// Each field's contributions are summed in ascending order so the result
// is bit-identical for any ordering of items.
func Aggregate(items []Item) *nutrient.Vector {
	if len(items) == 0 {
		return nil
	}

	protein := make([]float64, 0, len(items))
	fat := make([]float64, 0, len(items))
	carbs := make([]float64, 0, len(items))
	fiber := make([]float64, 0, len(items))
	sugar := make([]float64, 0, len(items))
	for _, item := range items {
		c := item.Contribution()
		protein = append(protein, c.Protein)
		fat = append(fat, c.Fat)
		carbs = append(carbs, c.TotalCarbs)
		fiber = append(fiber, c.Fiber)
		sugar = append(sugar, c.Sugar)
	}

	return &nutrient.Vector{
		Protein:    sortedSum(protein),
		Fat:        sortedSum(fat),
		TotalCarbs: sortedSum(carbs),
		Fiber:      sortedSum(fiber),
		Sugar:      sortedSum(sugar),
	}
}

func sortedSum(values []float64) float64 {
	sort.Float64s(values)
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
