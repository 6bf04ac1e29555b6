package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/cvindex/internal/config"
	"github.com/rshade/cvindex/internal/logging"
)

// fileLoggedCommands own the terminal, so their logs go to the log file.
//
//nolint:gochecknoglobals // Read-only lookup table.
var fileLoggedCommands = map[string]bool{"tui": true}

// setupLogging configures logging from config and the --debug flag and
// attaches the logger and a trace ID to the command context.
func setupLogging(cmd *cobra.Command, cfg *config.Config, debug bool) logging.LogPathResult {
	toFile := fileLoggedCommands[cmd.Name()]
	loggingCfg := cfg.ToLoggingConfig(toFile)
	loggingCfg.Output = cmd.ErrOrStderr()
	if debug {
		loggingCfg.Level = "debug"
		if !toFile {
			loggingCfg.Format = logging.FormatConsole
		}
	}

	result := logging.NewLoggerWithPath(loggingCfg)
	logger = logging.ComponentLogger(result.Logger, "cli")

	if result.UsingFile {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = result.Logger.WithContext(ctx)
	cmd.SetContext(ctx)

	logger.Debug().Ctx(ctx).Str("command", cmd.Name()).Msg("command started")
	return result
}

// cleanupLogging closes the log file, if any.
func cleanupLogging(cmd *cobra.Command, logResult *logging.LogPathResult) error {
	logger.Debug().Ctx(cmd.Context()).Str("command", cmd.Name()).Msg("command finished")
	if logResult != nil {
		return logResult.Close()
	}
	return nil
}
