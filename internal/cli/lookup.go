package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewLookupCmd creates the lookup command.
func NewLookupCmd() *cobra.Command {
	var flags acquireFlags

	cmd := &cobra.Command{
		Use:   "lookup <food name>",
		Short: "Estimate one serving of a food and score it",
		Long: `Asks the AI lookup service for the macros of one serving of a food, then
scores that serving with the item anchor. Results are cached on disk; use
--no-cache to force a fresh lookup.`,
		Example: `  # Look up a food
  cvindex lookup banana

  # Look up and add two servings to a cart
  cvindex lookup "peanut butter toast" --add -q 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), cfg, runtimeOptions{notify: noticePrinter(cmd)})
			if err != nil {
				return err
			}
			defer rt.Close()

			out, err := rt.pipe.Lookup(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return finishDraft(cmd, rt, out, flags)
		},
	}
	flags.register(cmd)
	return cmd
}
