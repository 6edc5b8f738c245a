// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal so that sums computed by different
// storage engines agree to the cent.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rejects
// signs, exponents and anything that is not plain digits. Zero is allowed.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if fracPart != "" {
		intPart += "." + fracPart
	}
	d, err := decimal.NewFromString(intPart)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// AmountFromFloat converts a stored double back into a decimal using the
// shortest representation, so 0.1 stays 0.1.
func AmountFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// AmountToFloat is the storage representation of an amount.
func AmountToFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
