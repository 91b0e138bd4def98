package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"eoranica/internal/config"
	gsheet "eoranica/internal/sheets/google"
)

func exportCommand(logger *slog.Logger, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Writes the per-plot breakdown to Google Sheets and reads it back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cfg.ExportEnabled() {
				return errors.New("GOOGLE_SPREADSHEET_ID is not set")
			}
			exporter, err := gsheet.NewFromEnv(ctx)
			if err != nil {
				return err
			}
			result, closeBackend, err := openBackend(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer closeBackend()

			sum, err := result.Dashboard.Compute(ctx)
			if err != nil {
				return fmt.Errorf("compute summary: %w", err)
			}
			if err := exporter.ExportSummary(ctx, sum); err != nil {
				return err
			}

			plots, totals, err := exporter.ReadExported(ctx)
			if err != nil {
				return fmt.Errorf("verify export: %w", err)
			}
			if len(plots) != len(sum.PerPlot) ||
				totals.Income != sum.TotalIncome || totals.Expense != sum.TotalExpense {
				return fmt.Errorf("exported sheet %q does not match: %d plots, income %s, expenses %s",
					exporter.SheetName(), len(plots), totals.Income, totals.Expense)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d plots to sheet %q\n", len(plots), exporter.SheetName())
			return nil
		},
	}
}
