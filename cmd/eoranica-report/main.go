// Command eoranica-report prints, exports and imports dashboard data from
// the command line.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"eoranica/internal/backend"
	"eoranica/internal/cli"
	"eoranica/internal/config"
)

// openBackend wires the configured backend and returns it with its cleanup.
func openBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*backend.BackendResult, func(), error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	return result, func() {
		if err := result.Cleanup(); err != nil {
			logger.Warn("Could not close backend", "error", err)
		}
	}, nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	rootCmd := &cobra.Command{
		Use:           "eoranica-report",
		Short:         "Dashboard reports for the farm",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		summaryCommand(logger, cfg),
		exportCommand(logger, cfg),
		importLedgerCommand(logger, cfg),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
