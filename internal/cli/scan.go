package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/cvindex/internal/acquire"
	"github.com/rshade/cvindex/internal/tui"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	var (
		flags acquireFlags
		name  string
	)

	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Read a nutrition label image and score the container",
		Long: `Sends a nutrition label image to the OCR service. The per-serving values are
multiplied by the label's serving count and the whole container is scored
with the item anchor.`,
		Example: `  # Scan a label
  cvindex scan label.jpg

  # Name the item and add it to a cart
  cvindex scan label.png --name "trail mix" --add`,
		Args: cobra.ExactArgs(1),
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

			img, closer, err := tui.OpenImage(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			if name != "" {
				if err := rt.pipe.SetDraft(acquire.Draft{Name: name}); err != nil {
					return err
				}
			}
			out, err := rt.pipe.Capture(cmd.Context(), img)
			if err != nil {
				return err
			}
			return finishDraft(cmd, rt, out, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "name for the scanned item")
	return cmd
}
