package cli

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rshade/cvindex/internal/cart"
	"github.com/rshade/cvindex/internal/gauge"
	"github.com/rshade/cvindex/internal/tui"
)

// ErrNotTerminal is returned when the TUI is started without a terminal.
var ErrNotTerminal = errors.New("the interactive cart needs a terminal, use the score command instead")

// NewTUICmd creates the tui command.
func NewTUICmd() *cobra.Command {
	var items []string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive cart",
		Long: `Opens the interactive cart with animated cart and item gauges. Add foods
by AI lookup (l), manual entry (m) or label scan (s). Logs go to the
configured log file while the TUI owns the terminal.`,
		Example: `  cvindex tui
  cvindex tui --item "oats:5,3,27,4,1" --cart-anchor fiber`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdout) {
				return ErrNotTerminal
			}
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			queue := &tui.RequestQueue{}
			rt, err := newRuntime(cmd.Context(), cfg, runtimeOptions{dispatcher: queue.Push})
			if err != nil {
				return err
			}
			defer rt.Close()

			for _, raw := range items {
				s, specErr := cart.ParseSpec(raw)
				if specErr != nil {
					return specErr
				}
				qty, qErr := s.Quantity()
				if qErr != nil {
					return qErr
				}
				if _, addErr := rt.session.AddItem(s.Name, s.Vector, qty); addErr != nil {
					return fmt.Errorf("adding %q: %w", s.Name, addErr)
				}
			}

			app := tui.NewApp(cmd.Context(), tui.Deps{
				Session:  rt.session,
				Pipeline: rt.pipe,
				Queue:    queue,
				Clock:    gauge.SystemClock{},
				Gauge:    cfg.GaugeOptions(),
				Logger:   rt.logger,
			})
			p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running interactive cart: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, "preload an item spec (repeatable)")
	return cmd
}
