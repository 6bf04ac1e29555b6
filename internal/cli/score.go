package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/cvindex/internal/cart"
	"github.com/rshade/cvindex/internal/config"
	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/scoring"
)

// ErrNoItems is returned when score has nothing to add to the cart.
var ErrNoItems = errors.New("no cart items given, pass item specs or --file")

// CartFile is the on-disk cart format accepted by --file. JSON and YAML
// use the same field names.
type CartFile struct {
	Items []CartFileItem `json:"items" yaml:"items"`
}

// CartFileItem is one cart line. Macros are per serving; Servings scales
// them before Quantity multiplies the line.
type CartFileItem struct {
	Name     string  `json:"name"               yaml:"name"`
	Quantity *int    `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Servings float64 `json:"servings,omitempty" yaml:"servings,omitempty"`

	nutrient.Vector `yaml:",inline"`
}

// Spec converts the line into a cart spec.
func (i CartFileItem) Spec() (cart.Spec, error) {
	if strings.TrimSpace(i.Name) == "" {
		return cart.Spec{}, cart.ErrEmptyName
	}
	vec := i.Vector
	vec.NetCarbs = nil
	if i.Servings < 0 {
		return cart.Spec{}, fmt.Errorf("%w: negative servings for %q", cart.ErrBadSpec, i.Name)
	}
	if i.Servings > 0 {
		vec = vec.Scale(i.Servings)
	}
	count := 1.0
	if i.Quantity != nil {
		count = float64(*i.Quantity)
	}
	return cart.Spec{Name: i.Name, Vector: vec, Count: count}, nil
}

// LoadCartFile reads a cart from a .json, .yaml or .yml file.
func LoadCartFile(path string) ([]cart.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cart file: %w", err)
	}

	var f CartFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &f)
	default:
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing cart file %s: %w", path, err)
	}

	specs := make([]cart.Spec, 0, len(f.Items))
	for n, item := range f.Items {
		s, specErr := item.Spec()
		if specErr != nil {
			return nil, fmt.Errorf("cart file item %d: %w", n+1, specErr)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// scoreReport is the JSON output of the score command.
type scoreReport struct {
	Items     []cart.Item      `json:"items"`
	Aggregate *nutrient.Vector `json:"aggregate"`
	Cart      scoreView        `json:"cart"`
	Each      []itemReport     `json:"each,omitempty"`
}

type itemReport struct {
	Name  string    `json:"name"`
	Score scoreView `json:"score"`
}

// NewScoreCmd creates the score command.
func NewScoreCmd() *cobra.Command {
	var (
		file      string
		each      bool
		failAbove float64
	)

	cmd := &cobra.Command{
		Use:   "score [name:protein,fat,carbs,fiber,sugar[xN]]...",
		Short: "Aggregate a cart and score it",
		Long: `Builds a cart from item specs and/or a cart file, sums the macros and asks
the remote calculator for the cart's predicted index score.

Each spec is a name, a colon and five comma-separated gram values in the order
protein, fat, total carbs, fiber, sugar. A trailing xN adds N units.`,
		Example: `  # Two units of a granola bar
  cvindex score "granola bar:4,7,29,2,12x2"

  # Score a cart file balanced on fat, with per-item scores
  cvindex score --file cart.yaml --cart-anchor fat --each

  # Fail in CI when the cart scores above 35
  cvindex score --file cart.json --fail-above 35`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, args, file, each, failAbove)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "cart file (.yaml, .yml or .json)")
	cmd.Flags().BoolVar(&each, "each", false, "also score every item on its own with the item anchor")
	cmd.Flags().Float64Var(&failAbove, "fail-above", 0, "exit with code 3 when the cart score exceeds this value (0 disables)")

	return cmd
}

func runScore(cmd *cobra.Command, args []string, file string, each bool, failAbove float64) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}

	specs, err := collectSpecs(args, file)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	held := newLatestDispatcher()
	rt, err := newRuntime(ctx, cfg, runtimeOptions{dispatcher: held.Dispatch})
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, s := range specs {
		qty, qErr := s.Quantity()
		if qErr != nil {
			return qErr
		}
		if _, addErr := rt.session.AddItem(s.Name, s.Vector, qty); addErr != nil {
			return fmt.Errorf("adding %q: %w", s.Name, addErr)
		}
	}
	held.Flush(ctx, rt.session)

	cartState := rt.orch.State(scoring.TargetCart)
	report := scoreReport{
		Items:     rt.store.Items(),
		Aggregate: rt.store.Aggregate(),
		Cart:      newScoreView(cartState, rt.session.CartAnchor()),
	}

	if each {
		for _, item := range report.Items {
			state, _ := rt.session.ScoreItem(ctx, item.Vector)
			report.Each = append(report.Each, itemReport{
				Name:  item.Name,
				Score: newScoreView(state, rt.session.ItemAnchor()),
			})
		}
	}

	logger.Info().Ctx(ctx).
		Int("items", len(report.Items)).
		Str("zone", report.Cart.Zone).
		Msg("cart scored")

	if err := printScoreReport(cmd, cfg.Output.Format, report); err != nil {
		return err
	}

	if cartState.Err != nil && cartState.Result == nil {
		return fmt.Errorf("cart score failed: %w", cartState.Err)
	}
	if failAbove > 0 && report.Cart.Score != nil && *report.Cart.Score > failAbove {
		return &ExitError{
			ExitCode: ExitThreshold,
			Reason:   fmt.Sprintf("cart score %.1f exceeds %.1f", *report.Cart.Score, failAbove),
		}
	}
	return nil
}

func collectSpecs(args []string, file string) ([]cart.Spec, error) {
	var specs []cart.Spec
	if file != "" {
		fromFile, err := LoadCartFile(file)
		if err != nil {
			return nil, err
		}
		specs = append(specs, fromFile...)
	}
	for _, arg := range args {
		s, err := cart.ParseSpec(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	if len(specs) == 0 {
		return nil, ErrNoItems
	}
	return specs, nil
}

func printScoreReport(cmd *cobra.Command, format string, report scoreReport) error {
	out := cmd.OutOrStdout()
	if format == config.OutputJSON {
		return writeJSON(out, report)
	}

	if err := renderItemsTable(out, report.Items, report.Aggregate); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := renderScore(out, "Cart score", report.Cart); err != nil {
		return err
	}
	for _, it := range report.Each {
		fmt.Fprintln(out)
		if err := renderScore(out, it.Name, it.Score); err != nil {
			return err
		}
	}
	return nil
}
