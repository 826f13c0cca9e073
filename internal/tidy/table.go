// Package tidy converts raw vendor records into the canonical wide table
// keyed by (timestamp, ticker).
package tidy

import (
	"sort"
	"time"

	"backfill/internal/request"
)

// Row is one (timestamp, ticker) observation. Values holds the requested
// fields only; a nil pointer is a null cell.
type Row struct {
	Timestamp time.Time
	Ticker    string
	Values    map[request.Field]*float64
}

// Value returns the cell for a field, nil when null or not requested.
func (r Row) Value(f request.Field) *float64 {
	return r.Values[f]
}

// Table is the canonical merged output: rows sorted ascending by
// (timestamp, ticker), columns restricted to the request's field subset.
type Table struct {
	Fields []request.Field
	Rows   []Row
}

// Tickers returns the distinct instruments present, sorted.
func (t *Table) Tickers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		if !seen[r.Ticker] {
			seen[r.Ticker] = true
			out = append(out, r.Ticker)
		}
	}
	sort.Strings(out)
	return out
}

// RowsFor returns the rows of one instrument in table order.
func (t *Table) RowsFor(ticker string) []Row {
	var out []Row
	for _, r := range t.Rows {
		if r.Ticker == ticker {
			out = append(out, r)
		}
	}
	return out
}
