// Package ledgercsv reads ledger entries from CSV files with the columns
// amount, plot_id, description, date.
package ledgercsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"eoranica/internal/core"
)

const dateLayout = "2006-01-02"

var header = []string{"amount", "plot_id", "description", "date"}

// RowError points at the CSV line that could not be imported.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Read parses every row before returning so that a malformed file imports
// nothing. An optional header row is skipped. Empty amounts are kept as
// entries without an amount.
func Read(r io.Reader) ([]core.LedgerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var entries []core.LedgerEntry
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &RowError{Line: pe.Line, Err: pe.Err}
			}
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if first && isHeader(rec) {
			continue
		}
		e, err := parseRow(rec)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func isHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), header[0])
}

func parseRow(rec []string) (core.LedgerEntry, error) {
	if len(rec) != len(header) {
		return core.LedgerEntry{}, fmt.Errorf("expected %d columns (%s), got %d",
			len(header), strings.Join(header, ","), len(rec))
	}
	e := core.LedgerEntry{
		Amount:      core.Amount(strings.TrimSpace(rec[0])),
		Description: strings.TrimSpace(rec[2]),
	}
	if _, _, err := e.Amount.Cents(); err != nil {
		return e, err
	}
	if s := strings.TrimSpace(rec[1]); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return e, &core.ValidationError{Field: "plot_id", Value: s, Reason: "not a plot id"}
		}
		e.PlotID = &id
	}
	if s := strings.TrimSpace(rec[3]); s != "" {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return e, &core.ValidationError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
		}
		e.Date = d
	}
	return e, nil
}
