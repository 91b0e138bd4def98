// Package http serves the dashboard, the record pages and the JSON API.
//
// This file reads form-encoded and JSON request bodies through one API so
// every handler accepts both.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eoranica/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once. A body over 1 MiB makes Parse
// return an *http.MaxBytesError instead of a truncated form.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like JSON, as a form otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.IsJSONContent() {
		p.jsonData = make(map[string]any)
		decoder := json.NewDecoder(strings.NewReader(string(p.body)))
		decoder.UseNumber()
		if err := decoder.Decode(&p.jsonData); err != nil {
			p.err = &core.ValidationError{Field: "body", Reason: "malformed JSON"}
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = &core.ValidationError{Field: "body", Reason: "malformed form"}
	}
	return p.err
}

// IsJSONContent reports a JSON content type or a body starting with '{'.
func (p *RequestBodyParser) IsJSONContent() bool {
	if strings.HasPrefix(p.contentType, "application/json") {
		return true
	}
	trimmed := strings.TrimSpace(string(p.body))
	return strings.HasPrefix(trimmed, "{")
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Int64 parses a required positive id. Absent values return 0 and are
// rejected later by the entity's Validate.
func (p *RequestBodyParser) Int64(key string) (int64, error) {
	v := p.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &core.ValidationError{Field: key, Value: v, Reason: "not a whole number"}
	}
	return n, nil
}

// OptionalInt64 returns nil for an absent value or "0".
func (p *RequestBodyParser) OptionalInt64(key string) (*int64, error) {
	n, err := p.Int64(key)
	if err != nil || n == 0 {
		return nil, err
	}
	return &n, nil
}

func (p *RequestBodyParser) Int(key string) (int, error) {
	n, err := p.Int64(key)
	return int(n), err
}

// Date parses YYYY-MM-DD. An absent value yields the zero time.
func (p *RequestBodyParser) Date(key string) (time.Time, error) {
	v := p.Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: key, Value: v, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// Money parses a non-negative price such as "12,50".
func (p *RequestBodyParser) Money(key string) (core.Money, error) {
	v := p.Get(key)
	if v == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseAmount(v)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
