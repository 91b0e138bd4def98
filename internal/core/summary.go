package core

import (
	"fmt"
	"math"
)

// Snapshot is the read-only input of Summarize. Callers load it from the
// persistence layer; PersonCount is supplied separately because it is not
// derived from any of the collections.
type Snapshot struct {
	Orders        []Order       `json:"orders"`
	Chores        []Chore       `json:"chores"`
	Plots         []Plot        `json:"plots"`
	LedgerEntries []LedgerEntry `json:"ledger_entries"`
	PersonCount   int           `json:"person_count"`
}

// PlotSummary is one row of the per-plot breakdown. Expense is an absolute
// value; Balance keeps its sign.
type PlotSummary struct {
	PlotID   int64  `json:"plot_id"`
	PlotName string `json:"plot_name"`
	Income   Money  `json:"plot_income"`
	Expense  Money  `json:"plot_expense"`
	Balance  Money  `json:"plot_balance"`
}

// DashboardSummary is the aggregated read model shown on the dashboard.
type DashboardSummary struct {
	OrderCount   int           `json:"order_count"`
	ChoreCount   int           `json:"chore_count"`
	PersonCount  int           `json:"person_count"`
	TotalIncome  Money         `json:"total_income"`
	TotalExpense Money         `json:"total_expense"`
	PerPlot      []PlotSummary `json:"per_plot_breakdown"`
}

// Balance is income minus expense across all entries.
func (s DashboardSummary) Balance() Money {
	return Money{Cents: s.TotalIncome.Cents - s.TotalExpense.Cents}
}

// Summarize computes counts, global income/expense totals and one breakdown
// row per plot, in the order of s.Plots.
//
// Entries without an amount contribute nothing. Entries without a plot count
// toward the global totals only. A plot with no entries yields an all-zero
// row. A malformed amount, or a total that no longer fits in int64 cents,
// aborts with a *ValidationError.
func Summarize(s Snapshot) (DashboardSummary, error) {
	out := DashboardSummary{
		OrderCount:  len(s.Orders),
		ChoreCount:  len(s.Chores),
		PersonCount: s.PersonCount,
		PerPlot:     make([]PlotSummary, 0, len(s.Plots)),
	}

	type totals struct{ income, expense int64 }
	byPlot := make(map[int64]*totals, len(s.Plots))

	for _, e := range s.LedgerEntries {
		cents, present, err := e.Amount.Cents()
		if err != nil {
			return DashboardSummary{}, fmt.Errorf("ledger entry %d: %w", e.ID, err)
		}
		if !present || cents == 0 {
			continue
		}

		var t *totals
		if e.PlotID != nil {
			t = byPlot[*e.PlotID]
			if t == nil {
				t = &totals{}
				byPlot[*e.PlotID] = t
			}
		}

		var ok bool
		if cents > 0 {
			ok = grow(&out.TotalIncome.Cents, cents) && (t == nil || grow(&t.income, cents))
		} else {
			ok = grow(&out.TotalExpense.Cents, -cents) && (t == nil || grow(&t.expense, -cents))
		}
		if !ok {
			return DashboardSummary{}, fmt.Errorf("ledger entry %d: %w", e.ID,
				&ValidationError{Field: "amount", Value: string(e.Amount), Reason: "total out of range"})
		}
	}

	for _, p := range s.Plots {
		row := PlotSummary{PlotID: p.ID, PlotName: p.Name}
		if t := byPlot[p.ID]; t != nil {
			row.Income = Money{Cents: t.income}
			row.Expense = Money{Cents: t.expense}
			row.Balance = Money{Cents: t.income - t.expense}
		}
		out.PerPlot = append(out.PerPlot, row)
	}

	return out, nil
}

// grow adds n >= 0 to *total, reporting false instead of wrapping around.
func grow(total *int64, n int64) bool {
	if *total > math.MaxInt64-n {
		return false
	}
	*total += n
	return true
}
