package core

import (
	"fmt"
	"time"
)

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthName returns the Indonesian name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// FormatMonthYear renders "Maret 2024".
func FormatMonthYear(m Month) string {
	return fmt.Sprintf("%s %d", MonthName(m.Month), m.Year)
}

// FormatLongDate renders "5 Maret 2024".
func FormatLongDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), MonthName(t.Month()), t.Year())
}

// FormatShortDate renders "5/3/2024".
func FormatShortDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}
