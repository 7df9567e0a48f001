// Package core provides money handling utilities.
//
// Amounts are carried as decimal values from the store to the response
// boundary. Only the formatter turns them into floats or display strings.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits stored for an amount.
const AmountScale = 2

// ParseAmount converts user input to a decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero to two places.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, InvalidParameter("amount", s)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, InvalidParameter("amount", s)
	}
	return d.Round(AmountScale), nil
}

// AmountFloat returns the JSON-facing number for an amount.
func AmountFloat(d decimal.Decimal) float64 {
	return d.Round(AmountScale).InexactFloat64()
}

// AmountString renders an amount with exactly two decimals, e.g. "12.50".
func AmountString(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}
