package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/cvindex/internal/config"
)

// NewConfigInitCmd creates the config init command for initializing configuration.
// With --project it writes .cvindex/config.yaml under the project directory
// instead of the global ~/.cvindex/config.yaml.
func NewConfigInitCmd() *cobra.Command {
	var (
		force   bool
		project string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values.

By default the global file ~/.cvindex/config.yaml (or $CVINDEX_HOME/config.yaml)
is written. With --project DIR, DIR/.cvindex/config.yaml is written instead;
its sections override the global file section by section.`,
		Example: `  # Create global configuration
  cvindex config init

  # Create project-local configuration
  cvindex config init --project .

  # Overwrite an existing file
  cvindex config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.New()
			if flagPath, _ := cmd.Flags().GetString("config"); flagPath != "" {
				cfg.SetPath(flagPath)
			}
			if project != "" {
				cfg.SetPath(filepath.Join(project, ".cvindex", "config.yaml"))
			}
			return initConfig(cmd, cfg, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().StringVar(&project, "project", "", "write a project overlay under this directory")

	return cmd
}

func initConfig(cmd *cobra.Command, cfg *config.Config, force bool) error {
	if !force {
		_, err := os.Stat(cfg.Path())
		if err == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", cfg.Path(), err)
		}
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", cfg.Path())
	return nil
}
