package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/cvindex/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Validates the effective configuration: the global file, any project overlay,
CVINDEX_* environment variables and flags. Every problem is listed.`,
		Example: `  # Validate current configuration
  cvindex config validate

  # Validate and show the resolved endpoints
  cvindex config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		cmd.PrintErrln("Configuration errors:")
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				cmd.PrintErrf("  - %s\n", e)
			}
		} else {
			cmd.PrintErrf("  - %s\n", err)
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("Configuration is valid\n")
	if verbose {
		printVerboseDetails(cmd, cfg)
	}
	return nil
}

// printVerboseDetails prints detailed configuration information.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	eps := cfg.Endpoints()
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Config file: %s\n", cfg.Path())
	cmd.Printf("  Score endpoint: %s\n", eps.Score)
	cmd.Printf("  OCR endpoint: %s\n", eps.OCR)
	cmd.Printf("  Lookup endpoint: %s\n", eps.Lookup)
	cmd.Printf("  Health endpoint: %s\n", cfg.HealthURL())
	cmd.Printf("  Timeout: %s\n", cfg.Timeout())
	cmd.Printf("  Anchors: cart %s, item %s\n", cfg.Anchors.Cart.Label(), cfg.Anchors.Item.Label())
	if cfg.Cache.Enabled {
		cmd.Printf("  Lookup cache: %s (ttl %ds)\n", cfg.Cache.Directory, cfg.Cache.TTLSeconds)
	} else {
		cmd.Printf("  Lookup cache: disabled\n")
	}
	cmd.Printf("  Logging: %s %s\n", cfg.Logging.Level, cfg.Logging.Format)
	cmd.Printf("  Log file: %s\n", cfg.Logging.File)
}

// NewConfigShowCmd creates the config show command.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Example: `  cvindex config show
  cvindex config show -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if cfg.Output.Format == config.OutputJSON {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			return enc.Close()
		},
	}
}
