package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/cvindex/internal/config"
	"github.com/rshade/cvindex/internal/remote"
)

// NewHealthCmd creates the health command.
func NewHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the remote services",
		Long: `Probes the health endpoint of every configured service concurrently and
reports status, version and latency. When services.min_version is set, older
services are reported unhealthy. Exits with code 2 if any service is unhealthy.`,
		Example: `  cvindex health
  cvindex health --base-url https://api.example.com -o json`,
		RunE: runHealth,
	}
	return cmd
}

func runHealth(cmd *cobra.Command, _ []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd.Context(), cfg, runtimeOptions{noCache: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	prober, err := remote.NewProber(rt.client, cfg.Services.MinVersion)
	if err != nil {
		return err
	}
	reports := prober.ProbeAll(cmd.Context(), healthTargets(cfg))

	if cfg.Output.Format == config.OutputJSON {
		if err := writeJSON(cmd.OutOrStdout(), reports); err != nil {
			return err
		}
	} else if err := renderHealth(cmd, reports); err != nil {
		return err
	}

	if !remote.AllHealthy(reports) {
		return &ExitError{ExitCode: ExitUnhealthy, Reason: "one or more services are unhealthy"}
	}
	return nil
}

func renderHealth(cmd *cobra.Command, reports []remote.HealthReport) error {
	tw := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(tw, "SERVICE\tSTATUS\tVERSION\tLATENCY\tURL\tERROR")
	for _, r := range reports {
		status := "healthy"
		if !r.Healthy {
			status = "unhealthy"
		}
		version := r.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Name, status, version, r.Latency.Round(time.Millisecond), r.URL, r.Error)
	}
	return tw.Flush()
}
