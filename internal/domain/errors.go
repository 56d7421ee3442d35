package domain

import (
	"fmt"
	"strings"
)

// UpstreamError reports a failed call to the FIRMS provider: a network error,
// a timeout, a non-2xx status, an undecodable body or an open circuit.
// It is never retried automatically.
type UpstreamError struct {
	Op         string // "fetch", "decode", "circuit"
	URL        string // redacted
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("firms %s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("firms %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// SchemaError reports a CSV document that lacks required columns. Callers
// turn it into an empty Dataset.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "firms csv: missing required columns: " + strings.Join(e.Missing, ", ")
}

// RowError describes one CSV row that could not be normalized. The row is
// dropped; the rest of the document is unaffected.
type RowError struct {
	Line  int    `json:"line"`
	Field string `json:"field"`
	Value string `json:"value"`
	Err   error  `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s=%q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }
