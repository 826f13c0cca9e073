// Package convert provides numeric coercion helpers for vendor payloads.
package convert

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Float parses a vendor numeric string through decimal to avoid the
// precision loss strconv exhibits on very small rates (e.g. "0.00010000").
// Returns 0 on empty input or parse failure.
func Float(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	f, _ := d.Float64()
	return f
}

// Ptr returns a pointer to v.
func Ptr(v float64) *float64 {
	return &v
}
