package core

import (
	"errors"
	"testing"
	"time"
)

func ptr(v int64) *int64 { return &v }

func TestPersonValidate(t *testing.T) {
	good := Person{FirstName: "Ana", LastName: "Horvat", Email: "ana@example.com"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got := good.FullName(); got != "Ana Horvat" {
		t.Fatalf("FullName = %q", got)
	}

	bads := []Person{
		{FirstName: "", LastName: "Horvat"},
		{FirstName: "Ana", LastName: "  "},
		{FirstName: "Ana", LastName: "Horvat", Email: "nope"},
	}
	for i, p := range bads {
		err := p.Validate()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestOrderValidate(t *testing.T) {
	good := Order{Quantity: 3, CustomerID: 1, PlantID: 2, OrderStatusID: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Order{
		{Quantity: 0, CustomerID: 1, PlantID: 2, OrderStatusID: 1},
		{Quantity: 1, CustomerID: 0, PlantID: 2, OrderStatusID: 1},
		{Quantity: 1, CustomerID: 1, PlantID: 0, OrderStatusID: 1},
		{Quantity: 1, CustomerID: 1, PlantID: 2, OrderStatusID: 0},
	}
	for i, o := range bads {
		if err := o.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCountryAndCityValidate(t *testing.T) {
	tests := []struct {
		name string
		v    interface{ Validate() error }
		ok   bool
	}{
		{"country", Country{Name: "Croatia"}, true},
		{"blank country", Country{Name: " "}, false},
		{"city", City{Name: "Zagreb", CountryID: 1}, true},
		{"city without country", City{Name: "Zagreb"}, false},
		{"blank city", City{CountryID: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if tt.ok != (err == nil) {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestChoreAndPlotValidate(t *testing.T) {
	if err := (Chore{ChoreDefinitionID: 1, OrderStatusID: 1, PersonID: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Chore{ChoreDefinitionID: 1, OrderStatusID: 1}).Validate(); err == nil {
		t.Fatalf("expected error for missing person")
	}
	if err := (Plot{Name: "North"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Plot{Name: " "}).Validate(); err == nil {
		t.Fatalf("expected error for blank plot name")
	}
}

func TestPlantValidate(t *testing.T) {
	if err := (Plant{Name: "Lavandula", Price: Money{Cents: 450}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Plant{Name: "Lavandula", Price: Money{Cents: -1}}).Validate(); err == nil {
		t.Fatalf("expected error for negative price")
	}
	pp := PlantPassport{CertificateNumber: "HR-123", DateOfIssue: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	if err := pp.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (PlantPassport{CertificateNumber: "HR-123"}).Validate(); err == nil {
		t.Fatalf("expected error for zero issue date")
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	cases := []struct {
		e  LedgerEntry
		ok bool
	}{
		{LedgerEntry{Amount: "100"}, true},
		{LedgerEntry{Amount: "-40.5", PlotID: ptr(1)}, true},
		{LedgerEntry{Amount: ""}, true}, // absent amount
		{LedgerEntry{Amount: "forty"}, false},
		{LedgerEntry{Amount: "1", PlotID: ptr(0)}, false},
	}
	for i, tc := range cases {
		err := tc.e.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNotFoundError(t *testing.T) {
	var err error = &NotFoundError{Entity: "plot", ID: 7}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(ErrNotFound)")
	}
	if err.Error() != "plot 7 not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
