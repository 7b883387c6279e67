// Package core provides amount parsing and display helpers.
//
// Amounts are stored as float64 so persisted snapshots keep the plain JSON
// number shape. Parsing goes through a decimal so malformed input is rejected
// instead of being truncated to a numeric prefix.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Empty or unparseable input returns ErrInvalidAmount. Sign and magnitude
// are not checked.
//
// Examples:
//
//	ParseAmount("500")    -> 500, nil
//	ParseAmount("120.50") -> 120.5, nil
//	ParseAmount("12,5")   -> 12.5, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	f := d.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

// FormatAmount renders an amount with two decimals for display.
// Stored values are never rounded.
func FormatAmount(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}
