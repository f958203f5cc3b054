// Package report builds the shareable monthly snapshot and the CSV export.
package report

import (
	"fmt"
	"net/url"
	"strings"

	"kaskelas/internal/core"
)

// Snapshot is the read-only monthly summary shown on the public snapshot page.
type Snapshot struct {
	Month   core.Month
	Fund    *core.Fund
	Income  int64
	Expense int64
	Rows    []core.Transaction
}

// Net returns income minus expense for the snapshot.
func (s Snapshot) Net() int64 {
	return s.Income - s.Expense
}

// FilterMonth keeps the transactions dated in month, preserving input order.
func FilterMonth(txs []core.Transaction, month core.Month) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if month.Contains(t.Date.Time) {
			out = append(out, t)
		}
	}
	return out
}

// BuildSnapshot filters txs to month and, when fund is non-nil, to that fund.
func BuildSnapshot(txs []core.Transaction, month core.Month, fund *core.Fund) Snapshot {
	rows := FilterMonth(txs, month)
	if fund != nil {
		kept := rows[:0]
		for _, t := range rows {
			if t.Fund == *fund {
				kept = append(kept, t)
			}
		}
		rows = kept
	}

	totals := core.MonthlySummary(rows, month, nil)
	return Snapshot{
		Month:   month,
		Fund:    fund,
		Income:  totals.Income,
		Expense: totals.Expense,
		Rows:    rows,
	}
}

// FundFilterLabel names the active fund filter.
func FundFilterLabel(fund *core.Fund) string {
	if fund == nil {
		return "Semua Dana"
	}
	return "Uang " + fund.Label()
}

// ShareLink builds origin+path with the snapshot query for month.
func ShareLink(origin, path string, month core.Month) string {
	return strings.TrimRight(origin, "/") + path + "?view=snapshot&month=" + month.String()
}

// ShareMessage is the prefilled chat message announcing a snapshot.
func ShareMessage(s Snapshot, cohort, link string) string {
	return fmt.Sprintf(
		"Ringkasan Keuangan %s - %s (%s):\n\n- Pemasukan: %s\n- Pengeluaran: %s\n\nLihat detail: %s",
		cohort,
		s.Month.Label(),
		FundFilterLabel(s.Fund),
		core.FormatRupiah(s.Income),
		core.FormatRupiah(s.Expense),
		link,
	)
}

// WhatsAppURL returns the click-to-share URL for message.
func WhatsAppURL(message string) string {
	return "https://api.whatsapp.com/send?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}
