package core

import (
	"fmt"
	"strings"
	"time"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses the YYYY-MM form used in URLs and form inputs.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month t falls in.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Contains reports whether t's calendar date falls in m.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// FirstDay returns the first calendar day of m.
func (m Month) FirstDay() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// Label returns the localized "Maret 2024" form.
func (m Month) Label() string {
	return FormatMonthYear(m)
}
