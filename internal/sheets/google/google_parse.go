package google

import (
	"fmt"
	"strconv"
	"strings"

	"eoranica/internal/core"
)

var header = []any{"Parcel", "Income", "Expense", "Balance"}

const totalLabel = "Total"

// summaryRows lays out a header, one row per plot and a totals row.
// Amounts are euros as numbers so the sheet can format them.
func summaryRows(s core.DashboardSummary) [][]any {
	rows := make([][]any, 0, len(s.PerPlot)+2)
	rows = append(rows, header)
	for _, p := range s.PerPlot {
		rows = append(rows, []any{p.PlotName, p.Income.Euros(), p.Expense.Euros(), p.Balance.Euros()})
	}
	rows = append(rows, []any{totalLabel, s.TotalIncome.Euros(), s.TotalExpense.Euros(), s.Balance().Euros()})
	return rows
}

// parseSummaryRows reverses summaryRows. Plot ids are not exported, so the
// returned rows only carry names and amounts.
func parseSummaryRows(values [][]any) ([]core.PlotSummary, core.PlotSummary, error) {
	if len(values) == 0 {
		return nil, core.PlotSummary{}, fmt.Errorf("empty sheet")
	}
	if got := toStrings(values[0]); len(got) < 4 || !strings.EqualFold(got[0], "Parcel") {
		return nil, core.PlotSummary{}, fmt.Errorf("unexpected header %v", got)
	}

	var (
		plots []core.PlotSummary
		total core.PlotSummary
		found bool
	)
	for i, raw := range values[1:] {
		cols := toStrings(raw)
		if len(cols) < 4 {
			continue
		}
		row := core.PlotSummary{PlotName: cols[0]}
		for j, dst := range []*core.Money{&row.Income, &row.Expense, &row.Balance} {
			cents, err := parseEurosToCents(cols[j+1])
			if err != nil {
				return nil, core.PlotSummary{}, fmt.Errorf("row %d: %w", i+2, err)
			}
			dst.Cents = cents
		}
		if strings.EqualFold(row.PlotName, totalLabel) {
			total, found = row, true
			continue
		}
		plots = append(plots, row)
	}
	if !found {
		return nil, core.PlotSummary{}, fmt.Errorf("missing %s row", totalLabel)
	}
	return plots, total, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// parseEurosToCents accepts what the Sheets API returns for a RAW number.
func parseEurosToCents(s string) (int64, error) {
	if _, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64); err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return core.ParseAmount(s)
}
