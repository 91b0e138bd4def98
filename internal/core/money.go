// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Textual amounts coming from forms,
// JSON payloads and CSV imports are parsed with shopspring/decimal so that
// a malformed value surfaces as a ValidationError instead of a silent zero.
package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds applied before any rounding. Rescaling a decimal with a huge
// exponent costs time proportional to the exponent.
const (
	maxAmountLen   = 64
	maxAmountScale = 18
)

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64 + 1)
)

// Amount is a decimal amount in its textual form, as it arrives from the
// outside world. The empty Amount means "no amount recorded".
type Amount string

// AmountFromCents renders cents as an Amount ("-12.30").
func AmountFromCents(cents int64) Amount {
	return Amount(FormatCents(cents))
}

// Cents parses the amount. present is false for the empty Amount, in which
// case the entry contributes nothing to any total.
func (a Amount) Cents() (cents int64, present bool, err error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return 0, false, nil
	}
	cents, err = ParseAmount(s)
	if err != nil {
		return 0, false, err
	}
	return cents, true, nil
}

// IsEmpty reports whether no amount was recorded.
func (a Amount) IsEmpty() bool {
	return strings.TrimSpace(string(a)) == ""
}

// UnmarshalJSON accepts a JSON number, a JSON string or null. The value is
// kept verbatim; parsing is deferred to Cents so that the aggregator can
// report which entry is malformed.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.IsEmpty() {
		return []byte("null"), nil
	}
	if cents, _, err := a.Cents(); err == nil {
		return []byte(FormatCents(cents)), nil
	}
	return json.Marshal(string(a))
}

// ParseAmount converts a signed decimal string to cents.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Fractions beyond two digits are rounded half away from zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234, nil
//	ParseAmount("-40")    -> -4000, nil
//	ParseAmount("12,345") -> 1235, nil
//	ParseAmount("abc")    -> 0, *ValidationError
func ParseAmount(s string) (int64, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "amount", Reason: "cannot be empty"}
	}
	if len(s) > maxAmountLen {
		return 0, &ValidationError{Field: "amount", Reason: "too long"}
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &ValidationError{Field: "amount", Value: raw, Reason: "not a number"}
	}
	if e := d.Exponent(); e < -maxAmountScale || e > maxAmountScale {
		return 0, &ValidationError{Field: "amount", Value: raw, Reason: "out of range"}
	}
	c := d.Shift(2).Round(0)
	if c.GreaterThan(maxCents) || c.LessThan(minCents) {
		return 0, &ValidationError{Field: "amount", Value: raw, Reason: "out of range"}
	}
	return c.IntPart(), nil
}

// ParseDecimalToCents parses a strictly positive amount, as used for plant
// prices. Zero and negative values return ErrInvalidAmount.
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// FormatCents renders cents with a dot separator and two decimals.
func FormatCents(cents int64) string {
	neg := cents < 0
	u := uint64(cents)
	if neg {
		u = uint64(-(cents + 1)) + 1
	}
	frac := u % 100
	s := strconv.FormatUint(u/100, 10) + "."
	if frac < 10 {
		s += "0"
	}
	s += strconv.FormatUint(frac, 10)
	if neg {
		return "-" + s
	}
	return s
}

// Euros returns the euro value as a float64 for display purposes.
// Use cents for calculations.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) String() string {
	return FormatCents(m.Cents)
}

// MarshalJSON encodes money as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(FormatCents(m.Cents)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var a Amount
	if err := a.UnmarshalJSON(data); err != nil {
		return err
	}
	cents, _, err := a.Cents()
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}
