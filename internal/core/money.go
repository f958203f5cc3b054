// Package core provides money parsing and formatting utilities.
//
// Amounts are whole Rupiah. Fractions are rejected at the input boundary so
// every sum stays exact.
package core

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// ParseAmount converts user input into whole Rupiah.
//
// It accepts an optional "Rp" prefix and "." thousand separators in groups
// of three. Decimal parts, signs and zero are rejected.
//
// Examples:
//
//	ParseAmount("50000")     -> 50000, nil
//	ParseAmount("Rp 50.000") -> 50000, nil
//	ParseAmount("50.5")      -> 0, ErrInvalidAmount
//	ParseAmount("50,5")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = strings.TrimSpace(strings.TrimPrefix(s[2:], "."))
	}
	if s == "" {
		return 0, ErrInvalidAmount
	}

	if strings.Contains(s, ".") {
		groups := strings.Split(s, ".")
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return 0, ErrInvalidAmount
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, ErrInvalidAmount
			}
		}
		s = strings.Join(groups, "")
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatRupiah renders an amount as "Rp 50.000", with a leading minus for negatives.
func FormatRupiah(v int64) string {
	if v < 0 {
		return "-Rp " + idPrinter.Sprintf("%d", -v)
	}
	return "Rp " + idPrinter.Sprintf("%d", v)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return FormatRupiah(m.Rupiah)
}
