// Package core holds the ledger domain: entry and budget types, the
// closed tagged variants they dispatch on, and the fixed-point money
// representation shared by every component.
//
// Monetary values are stored as integer micros (10^-6 units) so that SQL
// sums stay exact; decimal.Decimal is the boundary representation used
// for rate arithmetic and presentation. Output always rounds to exactly
// two fractional digits, and only at the presentation boundary.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MicroPlaces is the number of fractional digits carried internally.
const MicroPlaces = 6

// FromMicros converts stored integer micros to a decimal value.
func FromMicros(m int64) decimal.Decimal {
	return decimal.New(m, -MicroPlaces)
}

// ToMicros converts a decimal value to integer micros, half-up rounding
// any digits beyond the sixth.
func ToMicros(d decimal.Decimal) int64 {
	return d.Shift(MicroPlaces).Round(0).IntPart()
}

// Format2 renders a decimal with exactly two fractional digits, the only
// rounding applied on the way out.
func Format2(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatMicros2 renders stored micros with exactly two fractional digits.
func FormatMicros2(m int64) string {
	return FromMicros(m).StringFixed(2)
}

// ParseAmount parses a decimal string, accepting both dot and comma
// separators. The value must be strictly positive: ledger entries carry
// direction in their type, not in the sign of the amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// ParseRate parses an FX rate string. Rates must be strictly positive
// but, unlike amounts, keep every digit the source recorded.
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}
