package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/cvindex/internal/config"
	"github.com/rshade/cvindex/internal/logging"
	"github.com/rshade/cvindex/internal/nutrient"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// errConfigMissing means a command ran without the root pre-run.
var errConfigMissing = errors.New("configuration not loaded")

type configKey struct{}

// RootFlags are the persistent flags shared by every command.
type RootFlags struct {
	ConfigPath string
	ProjectDir string
	Debug      bool
	BaseURL    string
	LogLevel   string
	Output     string
	NoCache    bool
	CartAnchor string
	ItemAnchor string
}

// NewRootCmd creates the root Cobra command for the cvindex CLI. The
// persistent pre-run loads configuration, applies flag overrides and sets
// up logging and the trace ID for every subcommand.
func NewRootCmd(ver string) *cobra.Command {
	var (
		flags     RootFlags
		logResult *logging.LogPathResult
	)

	cmd := &cobra.Command{
		Use:           "cvindex",
		Short:         "Cart aggregation and glycemic index visualization",
		Long:          "cvindex: build a cart of foods, score it against the remote index calculator and watch the gauge",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			result := setupLogging(cmd, cfg, flags.Debug)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file (default ~/.cvindex/config.yaml)")
	pf.StringVar(&flags.ProjectDir, "project-dir", "", "project directory holding .cvindex/config.yaml")
	pf.BoolVar(&flags.Debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.BaseURL, "base-url", "", "base URL of the remote services")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.StringVarP(&flags.Output, "output", "o", "", "output format: table or json")
	pf.BoolVar(&flags.NoCache, "no-cache", false, "bypass the lookup cache")
	pf.StringVar(&flags.CartAnchor, "cart-anchor", "", "anchor macro for the cart score")
	pf.StringVar(&flags.ItemAnchor, "item-anchor", "", "anchor macro for item scores")

	cmd.AddCommand(
		NewScoreCmd(), NewLookupCmd(), NewScanCmd(), NewHealthCmd(),
		NewTUICmd(), newConfigCmd(), NewVersionCmd(ver),
	)
	return cmd
}

const rootCmdExample = `  # Score a cart of two items balanced on protein
  cvindex score "oats:5,3,27,4,1" "milk:8,5,12,0,12x2"

  # Score a cart file and every item in it
  cvindex score --file cart.yaml --each

  # Look up a food and score one serving
  cvindex lookup "greek yogurt"

  # Read a nutrition label photo
  cvindex scan label.jpg

  # Check the remote services
  cvindex health

  # Open the interactive cart
  cvindex tui`

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigShowCmd(), NewConfigValidateCmd())
	return cmd
}

// loadConfig reads the global file and project overlay, applies flag
// overrides and stores the result on the command context.
func loadConfig(cmd *cobra.Command, flags *RootFlags) (*config.Config, error) {
	wd, _ := os.Getwd()
	overlay := config.ProjectOverlayPath(flags.ProjectDir, wd)
	cfg, err := config.LoadWithOverlay(flags.ConfigPath, overlay)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg, flags); err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
	return cfg, nil
}

// applyFlags lets explicitly set flags win over file and env values.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags *RootFlags) error {
	changed := cmd.Flags().Changed
	if changed("base-url") {
		cfg.Services.BaseURL = flags.BaseURL
	}
	if changed("log-level") {
		cfg.Logging.Level = flags.LogLevel
	}
	if changed("output") {
		if flags.Output != config.OutputTable && flags.Output != config.OutputJSON {
			return fmt.Errorf("%w: output %q", config.ErrInvalidFormat, flags.Output)
		}
		cfg.Output.Format = flags.Output
	}
	if changed("cart-anchor") {
		a, err := nutrient.ParseAnchor(flags.CartAnchor)
		if err != nil {
			return fmt.Errorf("--cart-anchor: %w", err)
		}
		cfg.Anchors.Cart = a
	}
	if changed("item-anchor") {
		a, err := nutrient.ParseAnchor(flags.ItemAnchor)
		if err != nil {
			return fmt.Errorf("--item-anchor: %w", err)
		}
		cfg.Anchors.Item = a
	}
	if flags.NoCache {
		cfg.Cache.Enabled = false
	}
	return nil
}

// configFrom returns the configuration loaded by the root pre-run.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errConfigMissing
	}
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, errConfigMissing
	}
	return cfg, nil
}
