package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"eoranica/internal/config"
	"eoranica/internal/core"
)

func summaryCommand(logger *slog.Logger, cfg *config.Config) *cobra.Command {
	var asJSON, cached bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Prints the dashboard summary",
		Long: "Prints the dashboard summary computed from the current records.\n" +
			"With --cached it prints the last summary stored by eoranica-worker instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			result, closeBackend, err := openBackend(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer closeBackend()

			var (
				sum core.DashboardSummary
				at  time.Time
			)
			if cached {
				sum, at, err = result.Dashboard.Latest(ctx)
				if err != nil {
					return fmt.Errorf("latest stored summary: %w", err)
				}
			} else if sum, err = result.Dashboard.Compute(ctx); err != nil {
				return fmt.Errorf("compute summary: %w", err)
			}
			if asJSON {
				return writeSummaryJSON(cmd.OutOrStdout(), sum, at)
			}
			return writeSummary(cmd.OutOrStdout(), sum, at)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().BoolVar(&cached, "cached", false, "print the last summary stored by the worker")
	return cmd
}

// writeSummaryJSON prints the bare summary, or the summary with its
// computation time when at is set.
func writeSummaryJSON(w io.Writer, s core.DashboardSummary, at time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if at.IsZero() {
		return enc.Encode(s)
	}
	return enc.Encode(struct {
		ComputedAt time.Time             `json:"computed_at"`
		Summary    core.DashboardSummary `json:"summary"`
	}{at.UTC(), s})
}

func writeSummary(w io.Writer, s core.DashboardSummary, at time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !at.IsZero() {
		fmt.Fprintf(tw, "Computed at\t%s\n", at.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "Orders\t%d\n", s.OrderCount)
	fmt.Fprintf(tw, "Chores\t%d\n", s.ChoreCount)
	fmt.Fprintf(tw, "People\t%d\n", s.PersonCount)
	fmt.Fprintf(tw, "Income\t%s\n", s.TotalIncome)
	fmt.Fprintf(tw, "Expenses\t%s\n", s.TotalExpense)
	fmt.Fprintf(tw, "Balance\t%s\n\n", s.Balance())

	fmt.Fprintln(tw, "Plot\tIncome\tExpenses\tBalance")
	for _, p := range s.PerPlot {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.PlotName, p.Income, p.Expense, p.Balance)
	}
	return tw.Flush()
}
