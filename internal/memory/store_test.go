package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"eoranica/internal/core"
)

func ptr(v int64) *int64 { return &v }

func TestStore_SeededStatuses(t *testing.T) {
	s := New()
	statuses, _ := s.ListOrderStatuses(context.Background())
	if len(statuses) != len(core.DefaultOrderStatuses) {
		t.Fatalf("expected %d statuses, got %d", len(core.DefaultOrderStatuses), len(statuses))
	}
	for i, st := range statuses {
		if st.ID != int64(i+1) || st.Name != core.DefaultOrderStatuses[i] {
			t.Fatalf("unexpected status %+v at %d", st, i)
		}
	}
}

func TestStore_NewFromFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_plots.txt"), []byte("North\n# comment\n\nSouth\nNorth\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewFromFiles(dir)
	plots, _ := s.ListPlots(context.Background())
	if len(plots) != 2 || plots[0].Name != "North" || plots[1].Name != "South" {
		t.Fatalf("unexpected plots %+v", plots)
	}
	defs, _ := s.ListChoreDefinitions(context.Background())
	if len(defs) != 0 {
		t.Fatalf("expected no chore definitions without a seed file, got %d", len(defs))
	}
}

func TestStore_CRUDNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"get person", func() error { _, err := s.GetPerson(ctx, 9); return err }},
		{"update plot", func() error { return s.UpdatePlot(ctx, core.Plot{ID: 9, Name: "x"}) }},
		{"delete order", func() error { return s.DeleteOrder(ctx, 9) }},
		{"delete ledger entry", func() error { return s.DeleteLedgerEntry(ctx, 9) }},
		{"get chore", func() error { _, err := s.GetChore(ctx, 9); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_OrderJoins(t *testing.T) {
	ctx := context.Background()
	s := New()
	customer, _ := s.CreatePerson(ctx, core.Person{FirstName: "Ada", LastName: "Rossi"})
	plant, _ := s.CreatePlant(ctx, core.Plant{Name: "Olive"})
	id, _ := s.CreateOrder(ctx, core.Order{Quantity: 2, CustomerID: customer, PlantID: plant, OrderStatusID: 2})

	o, err := s.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if o.CustomerName != "Ada Rossi" || o.PlantName != "Olive" || o.StatusName != "In progress" {
		t.Fatalf("names not joined: %+v", o)
	}

	// A customer with orders cannot be deleted; the order keeps its names.
	if err := s.DeletePerson(ctx, customer); !errors.Is(err, &core.ValidationError{Field: "person", Reason: "still in use"}) {
		t.Fatalf("expected person still in use, got %v", err)
	}
	if err := s.DeletePlant(ctx, plant); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected plant still in use, got %v", err)
	}
	_ = s.DeleteOrder(ctx, id)
	if err := s.DeletePerson(ctx, customer); err != nil {
		t.Fatalf("DeletePerson after removing the order: %v", err)
	}
}

func TestStore_LedgerNormalization(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateLedgerEntry(ctx, core.LedgerEntry{Amount: "12,5"})
	if err != nil {
		t.Fatalf("CreateLedgerEntry: %v", err)
	}
	e, _ := s.GetLedgerEntry(ctx, id)
	if e.Amount != "12.50" || e.Date.IsZero() {
		t.Fatalf("unexpected entry %+v", e)
	}

	if _, err := s.CreateLedgerEntry(ctx, core.LedgerEntry{Amount: "twelve"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStore_ListLedgerNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	old, _ := s.CreateLedgerEntry(ctx, core.LedgerEntry{Amount: "1", Date: day})
	newer, _ := s.CreateLedgerEntry(ctx, core.LedgerEntry{Amount: "2", Date: day.AddDate(0, 0, 1)})
	sameDay, _ := s.CreateLedgerEntry(ctx, core.LedgerEntry{Amount: "3", Date: day})

	entries, _ := s.ListLedgerEntries(ctx)
	got := []int64{entries[0].ID, entries[1].ID, entries[2].ID}
	want := []int64{newer, sameDay, old}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func summarize(t *testing.T, s *Store) core.DashboardSummary {
	t.Helper()
	ctx := context.Background()
	plots, _ := s.ListPlots(ctx)
	ledger, _ := s.ListLedgerEntries(ctx)
	people, _ := s.CountPeople(ctx)
	sum, err := core.Summarize(core.Snapshot{Plots: plots, LedgerEntries: ledger, PersonCount: people})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	return sum
}

func TestStore_DeletePlotKeepsLedgerEntries(t *testing.T) {
	ctx := context.Background()
	s := New()
	north, _ := s.CreatePlot(ctx, core.Plot{Name: "North"})
	_, _ = s.CreateLedgerEntry(ctx, core.LedgerEntry{Amount: "100", PlotID: ptr(north)})
	_, _ = s.CreateLedgerEntry(ctx, core.LedgerEntry{Amount: "-40", PlotID: ptr(north)})
	_, _ = s.CreateLedgerEntry(ctx, core.LedgerEntry{Amount: "50"})
	_, _ = s.CreatePerson(ctx, core.Person{FirstName: "Ada", LastName: "Rossi"})

	sum := summarize(t, s)
	if sum.TotalIncome.Cents != 15000 || sum.TotalExpense.Cents != 4000 || sum.PersonCount != 1 {
		t.Fatalf("unexpected totals %+v", sum)
	}
	if len(sum.PerPlot) != 1 || sum.PerPlot[0].Balance.Cents != 6000 {
		t.Fatalf("unexpected breakdown %+v", sum.PerPlot)
	}

	if err := s.DeletePlot(ctx, north); err != nil {
		t.Fatalf("DeletePlot: %v", err)
	}
	sum = summarize(t, s)
	if sum.TotalIncome.Cents != 15000 || len(sum.PerPlot) != 0 {
		t.Fatalf("deleting a plot must keep global totals, got %+v", sum)
	}
}

func TestStore_CountriesAndCities(t *testing.T) {
	ctx := context.Background()
	s := New()
	hr, _ := s.CreateCountry(ctx, core.Country{Name: "Croatia"})
	it, _ := s.CreateCountry(ctx, core.Country{Name: "Italy"})
	if _, err := s.CreateCountry(ctx, core.Country{Name: "Italy"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected duplicate name to fail, got %v", err)
	}

	_, _ = s.CreateCity(ctx, core.City{Name: "Trieste", CountryID: it})
	_, _ = s.CreateCity(ctx, core.City{Name: "Split", CountryID: hr})
	zagreb, _ := s.CreateCity(ctx, core.City{Name: "Zagreb", CountryID: hr})

	cities, _ := s.ListCities(ctx)
	var got []string
	for _, c := range cities {
		got = append(got, c.CountryName+"/"+c.Name)
	}
	want := []string{"Croatia/Split", "Croatia/Zagreb", "Italy/Trieste"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("cities = %v, want %v", got, want)
	}

	if err := s.UpdateCity(ctx, core.City{ID: zagreb, Name: "Zagreb", CountryID: it}); err != nil {
		t.Fatalf("UpdateCity: %v", err)
	}
	if c, _ := s.GetCity(ctx, zagreb); c.CountryName != "Italy" {
		t.Fatalf("expected joined country name, got %+v", c)
	}

	if err := s.DeleteCountry(ctx, it); err != nil {
		t.Fatalf("DeleteCountry: %v", err)
	}
	cities, _ = s.ListCities(ctx)
	if len(cities) != 1 || cities[0].Name != "Split" {
		t.Fatalf("deleting a country must delete its cities, got %+v", cities)
	}
	if _, err := s.GetCity(ctx, zagreb); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Snapshots(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, _, err := s.LatestSnapshot(ctx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	now := time.Now()
	_ = s.SaveSnapshot(ctx, core.DashboardSummary{OrderCount: 3}, now)
	got, at, err := s.LatestSnapshot(ctx)
	if err != nil || got.OrderCount != 3 || !at.Equal(now) {
		t.Fatalf("unexpected snapshot %+v at %v (err=%v)", got, at, err)
	}
}
