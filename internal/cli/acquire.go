package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/cvindex/internal/acquire"
	"github.com/rshade/cvindex/internal/cart"
	"github.com/rshade/cvindex/internal/config"
	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/scoring"
)

// acquireFlags are shared by lookup and scan.
type acquireFlags struct {
	add      bool
	quantity int
}

func (f *acquireFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.add, "add", false, "add the item to a cart and print the cart score")
	cmd.Flags().IntVarP(&f.quantity, "quantity", "q", 1, "units to add with --add")
}

// draftReport is the JSON output of lookup and scan.
type draftReport struct {
	Name       string          `json:"name"`
	Source     acquire.Source  `json:"source"`
	PerServing nutrient.Vector `json:"per_serving"`
	Servings   float64         `json:"servings"`
	Total      nutrient.Vector `json:"total"`
	Item       scoreView       `json:"item"`
	Added      *cart.Item      `json:"added,omitempty"`
	Cart       *scoreView      `json:"cart,omitempty"`
}

// noticePrinter reports background scoring failures on stderr. Acquisition
// failures are returned as errors instead.
func noticePrinter(cmd *cobra.Command) func(acquire.Notice) {
	return func(n acquire.Notice) {
		if n.Failed && n.Flow == acquire.FlowSubmit {
			cmd.PrintErrf("Warning: %s\n", n.Message)
		}
	}
}

// finishDraft prints the outcome of a lookup or scan and optionally adds
// the draft to the cart.
func finishDraft(cmd *cobra.Command, rt *runtime, out acquire.Outcome, flags acquireFlags) error {
	report := draftReport{
		Name:       out.Draft.Name,
		Source:     out.Draft.Source,
		PerServing: out.Draft.PerServing,
		Servings:   out.Draft.ServingCount(),
		Total:      out.Draft.CartVector(),
		Item:       newScoreView(out.Score, rt.session.ItemAnchor()),
	}

	if flags.add {
		item, err := rt.session.ConfirmDraft(rt.pipe, flags.quantity)
		if err != nil {
			return fmt.Errorf("adding %q to the cart: %w", out.Draft.Name, err)
		}
		report.Added = &item
		cv := newScoreView(rt.orch.State(scoring.TargetCart), rt.session.CartAnchor())
		report.Cart = &cv
	}

	if rt.cfg.Output.Format == config.OutputJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return renderDraftReport(cmd, report)
}

func renderDraftReport(cmd *cobra.Command, r draftReport) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s (%s)\n", r.Name, r.Source)
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "\t%s\n", vectorHeader)
	fmt.Fprintf(tw, "PER SERVING\t%s\n", vectorColumns(r.PerServing))
	fmt.Fprintf(tw, "TOTAL x%g\t%s\n", r.Servings, vectorColumns(r.Total))
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := renderScore(w, "Item score", r.Item); err != nil {
		return err
	}
	if r.Added != nil && r.Cart != nil {
		fmt.Fprintf(w, "\nAdded %d x %s\n", r.Added.Quantity, r.Added.Name)
		return renderScore(w, "Cart score", *r.Cart)
	}
	return nil
}
