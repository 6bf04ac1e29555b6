package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/cvindex/internal/config"
	"github.com/rshade/cvindex/pkg/version"
)

// NewVersionCmd creates the version command. ver overrides the linked
// version when set.
func NewVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if ver != "" {
				info.Version = ver
			}
			if cfg, err := configFrom(cmd); err == nil && cfg.Output.Format == config.OutputJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			cmd.Println(info.String())
			return nil
		},
	}
}
