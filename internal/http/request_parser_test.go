package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eoranica/internal/core"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func TestRequestBodyParser_FormAndJSON(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"form", "application/x-www-form-urlencoded", "amount=12%2C50&plot_id=3&description=+Seeds%01+&date=2024-03-01"},
		{"json", "application/json", `{"amount":"12,50","plot_id":3,"description":" Seeds ","date":"2024-03-01"}`},
		{"json without content type", "", `{"amount":"12,50","plot_id":3,"description":"Seeds","date":"2024-03-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.contentType, tt.body)

			if got := p.Get("amount"); got != "12,50" {
				t.Errorf("amount = %q", got)
			}
			if got := p.Get("description"); got != "Seeds" {
				t.Errorf("description = %q", got)
			}
			plot, err := p.OptionalInt64("plot_id")
			if err != nil || plot == nil || *plot != 3 {
				t.Errorf("plot_id = %v, %v", plot, err)
			}
			date, err := p.Date("date")
			if err != nil || !date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("date = %v, %v", date, err)
			}
		})
	}
}

func TestRequestBodyParser_JSONNumbersKeepPrecision(t *testing.T) {
	p := newParser(t, "application/json", `{"amount": 0.1, "quantity": 12, "price": null}`)
	if got := p.Get("amount"); got != "0.1" {
		t.Errorf("amount = %q", got)
	}
	if n, err := p.Int("quantity"); err != nil || n != 12 {
		t.Errorf("quantity = %d, %v", n, err)
	}
	if m, err := p.Money("price"); err != nil || m.Cents != 0 {
		t.Errorf("price = %v, %v", m, err)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", "quantity=two&date=01/03/2024&price=cheap")

	if _, err := p.Int("quantity"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("quantity error = %v", err)
	}
	if _, err := p.Date("date"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("date error = %v", err)
	}
	if _, err := p.Money("price"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("price error = %v", err)
	}
	if v, err := p.OptionalInt64("missing"); v != nil || err != nil {
		t.Errorf("missing optional = %v, %v", v, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	req.Header.Set("Content-Type", "application/json")
	if err := NewRequestBodyParser(httptest.NewRecorder(), req).Parse(); !errors.Is(err, core.ErrValidation) {
		t.Errorf("malformed JSON error = %v", err)
	}
}

func TestRequestBodyParser_OversizedBody(t *testing.T) {
	body := "description=" + strings.Repeat("a", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	err := NewRequestBodyParser(httptest.NewRecorder(), req).Parse()
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected MaxBytesError, got %v", err)
	}
	if got := statusFor(err); got != http.StatusRequestEntityTooLarge {
		t.Fatalf("statusFor = %d, want 413", got)
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "€0,00"},
		{1234, "€12,34"},
		{-5, "-€0,05"},
		{-100000, "-€1000,00"},
	}
	for _, tt := range tests {
		if got := formatEuros(tt.cents); got != tt.want {
			t.Errorf("formatEuros(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}

	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput = %q", got)
	}

	statuses := map[error]int{
		&core.ValidationError{Field: "amount"}: http.StatusUnprocessableEntity,
		&core.NotFoundError{Entity: "plot"}:    http.StatusNotFound,
		errors.New("disk full"):                http.StatusInternalServerError,
	}
	for err, want := range statuses {
		if got := statusFor(err); got != want {
			t.Errorf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
