// Package core provides money parsing and handling utilities.
//
// This file contains the number grammar shared by the chat parsers: plain
// decimal numbers with either a dot or a comma as separator. Exponents,
// "nan" and "inf" are never accepted.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	unsignedNumber = regexp.MustCompile(`^(\d+([.,]\d*)?|[.,]\d+)$`)
	signedNumber   = regexp.MustCompile(`^[+-]?(\d+([.,]\d*)?|[.,]\d+)$`)
)

// ParseAmount parses a non-negative decimal amount.
//
// Examples:
//
//	ParseAmount("250")    -> 250, nil
//	ParseAmount("100.5")  -> 100.5, nil
//	ParseAmount("12,30")  -> 12.3, nil
//	ParseAmount("-3")     -> 0, ErrInvalidAmount
//	ParseAmount("1e3")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !unsignedNumber.MatchString(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	return parseNormalized(s)
}

// ParseSignedAmount is ParseAmount that also accepts a leading sign. It is
// used for manual balance overrides, which may be negative.
func ParseSignedAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !signedNumber.MatchString(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	return parseNormalized(s)
}

// LooksNumeric reports whether s starts like a number: a digit, optionally
// after a sign or a decimal separator. "123abc" looks numeric, "abc" does not.
func LooksNumeric(s string) bool {
	s = strings.TrimLeft(s, "+-")
	s = strings.TrimLeft(s, ".,")
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// FormatAmount renders an amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseNormalized(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.ReplaceAll(s, ",", "."), "+")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if neg {
		d = d.Neg()
	}
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
