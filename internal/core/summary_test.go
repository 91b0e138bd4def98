package core

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func entry(id int64, amount string, plot *int64) LedgerEntry {
	return LedgerEntry{ID: id, Amount: Amount(amount), PlotID: plot}
}

func TestSummarizeExample(t *testing.T) {
	got, err := Summarize(Snapshot{
		Plots: []Plot{{ID: 1, Name: "North"}},
		LedgerEntries: []LedgerEntry{
			entry(1, "100", ptr(1)),
			entry(2, "-40", ptr(1)),
			entry(3, "50", nil),
		},
		PersonCount: 4,
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	want := DashboardSummary{
		PersonCount:  4,
		TotalIncome:  Money{Cents: 15000},
		TotalExpense: Money{Cents: 4000},
		PerPlot: []PlotSummary{{
			PlotID:   1,
			PlotName: "North",
			Income:   Money{Cents: 10000},
			Expense:  Money{Cents: 4000},
			Balance:  Money{Cents: 6000},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	if got.Balance().Cents != 11000 {
		t.Fatalf("Balance = %d", got.Balance().Cents)
	}
}

func TestSummarizeZeroAmountEntry(t *testing.T) {
	base := Snapshot{
		Plots:         []Plot{{ID: 1, Name: "North"}},
		LedgerEntries: []LedgerEntry{entry(1, "10", ptr(1)), entry(2, "-3", ptr(1))},
	}
	before, err := Summarize(base)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	base.LedgerEntries = append(base.LedgerEntries, entry(3, "0", ptr(1)))
	after, err := Summarize(base)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("zero amount changed the summary:\n%s", diff)
	}
}

func TestSummarizeEmptyLedger(t *testing.T) {
	got, err := Summarize(Snapshot{
		Orders: []Order{{ID: 1}, {ID: 2}},
		Chores: []Chore{{ID: 1}},
		Plots:  []Plot{{ID: 2, Name: "South"}, {ID: 1, Name: "North"}},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.TotalIncome.Cents != 0 || got.TotalExpense.Cents != 0 {
		t.Fatalf("expected zero totals, got %+v", got)
	}
	if got.OrderCount != 2 || got.ChoreCount != 1 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	want := []PlotSummary{{PlotID: 2, PlotName: "South"}, {PlotID: 1, PlotName: "North"}}
	if diff := cmp.Diff(want, got.PerPlot); diff != "" {
		t.Fatalf("rows mismatch:\n%s", diff)
	}
}

func TestSummarizeNoInput(t *testing.T) {
	got, err := Summarize(Snapshot{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.PerPlot == nil || len(got.PerPlot) != 0 {
		t.Fatalf("expected empty, non-nil breakdown, got %#v", got.PerPlot)
	}
}

func TestSummarizeAbsentAmountAndUnknownPlot(t *testing.T) {
	got, err := Summarize(Snapshot{
		Plots: []Plot{{ID: 1, Name: "North"}},
		LedgerEntries: []LedgerEntry{
			entry(1, "", ptr(1)),
			entry(2, "25", ptr(9)), // plot not in the snapshot
		},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.TotalIncome.Cents != 2500 {
		t.Fatalf("TotalIncome = %d, want 2500", got.TotalIncome.Cents)
	}
	if row := got.PerPlot[0]; row.Income.Cents != 0 || row.Expense.Cents != 0 || row.Balance.Cents != 0 {
		t.Fatalf("expected all-zero row, got %+v", row)
	}
}

func TestSummarizeMalformedAmount(t *testing.T) {
	_, err := Summarize(Snapshot{
		LedgerEntries: []LedgerEntry{entry(1, "10", nil), entry(2, "ten", nil)},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Value != "ten" {
		t.Fatalf("expected ValidationError carrying the value, got %v", err)
	}
}

func TestSummarizeTotalOverflow(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{"income", "90000000000000000"},
		{"expense", "-90000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summarize(Snapshot{
				Plots:         []Plot{{ID: 1, Name: "North"}},
				LedgerEntries: []LedgerEntry{entry(1, tt.amount, ptr(1)), entry(2, tt.amount, nil)},
			})
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Reason != "total out of range" {
				t.Fatalf("expected total out of range, got %v (summary %+v)", err, got)
			}
		})
	}

	// The largest single amount still sums on its own.
	largest := "92233720368547758.07"
	got, err := Summarize(Snapshot{LedgerEntries: []LedgerEntry{entry(1, largest, nil), entry(2, "-"+largest, nil)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Balance().Cents != 0 {
		t.Fatalf("expected zero balance, got %d", got.Balance().Cents)
	}
}

func TestSummarizeDuplicatePlotRows(t *testing.T) {
	got, err := Summarize(Snapshot{
		Plots:         []Plot{{ID: 1, Name: "North"}, {ID: 1, Name: "North (copy)"}},
		LedgerEntries: []LedgerEntry{entry(1, "5", ptr(1))},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got.PerPlot) != 2 || got.PerPlot[0].Income != got.PerPlot[1].Income {
		t.Fatalf("expected two identical rows, got %+v", got.PerPlot)
	}
}

// randomSnapshot builds entries with amounts in [-500.00, 500.00], some
// absent, spread over three plots and the farm-wide bucket.
func randomSnapshot(r *rand.Rand) Snapshot {
	plots := []Plot{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}
	s := Snapshot{Plots: plots}
	n := r.Intn(40)
	for i := 0; i < n; i++ {
		var plot *int64
		if p := r.Intn(4); p > 0 {
			plot = ptr(int64(p))
		}
		amount := AmountFromCents(r.Int63n(100001) - 50000)
		if r.Intn(10) == 0 {
			amount = ""
		}
		s.LedgerEntries = append(s.LedgerEntries, LedgerEntry{ID: int64(i + 1), Amount: amount, PlotID: plot})
		s.Orders = append(s.Orders, Order{ID: int64(i + 1)})
	}
	return s
}

func TestSummarizeProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		s := randomSnapshot(r)
		got, err := Summarize(s)
		if err != nil {
			t.Fatalf("iter %d: %v", iter, err)
		}

		var sum int64
		for _, e := range s.LedgerEntries {
			if c, ok, _ := e.Amount.Cents(); ok {
				sum += c
			}
		}
		if got.TotalIncome.Cents-got.TotalExpense.Cents != sum {
			t.Fatalf("iter %d: income-expense=%d, sum=%d", iter, got.TotalIncome.Cents-got.TotalExpense.Cents, sum)
		}

		for _, row := range got.PerPlot {
			if row.Balance.Cents != row.Income.Cents-row.Expense.Cents {
				t.Fatalf("iter %d: plot %d balance %d != %d-%d", iter, row.PlotID, row.Balance.Cents, row.Income.Cents, row.Expense.Cents)
			}
			if row.Expense.Cents < 0 || row.Income.Cents < 0 {
				t.Fatalf("iter %d: negative income/expense in %+v", iter, row)
			}
		}

		shuffled := s
		shuffled.LedgerEntries = append([]LedgerEntry(nil), s.LedgerEntries...)
		shuffled.Orders = append([]Order(nil), s.Orders...)
		r.Shuffle(len(shuffled.LedgerEntries), func(i, j int) {
			shuffled.LedgerEntries[i], shuffled.LedgerEntries[j] = shuffled.LedgerEntries[j], shuffled.LedgerEntries[i]
		})
		r.Shuffle(len(shuffled.Orders), func(i, j int) {
			shuffled.Orders[i], shuffled.Orders[j] = shuffled.Orders[j], shuffled.Orders[i]
		})
		again, err := Summarize(shuffled)
		if err != nil {
			t.Fatalf("iter %d: %v", iter, err)
		}
		if diff := cmp.Diff(got, again); diff != "" {
			t.Fatalf("iter %d: summary depends on input order:\n%s", iter, diff)
		}
	}
}
