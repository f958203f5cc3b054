package core

import "time"

// RecentLimit is the number of transactions listed on the dashboard.
const RecentLimit = 20

// Totals holds income and expense sums over a set of transactions.
type Totals struct {
	Income  int64
	Expense int64
}

// Net returns income minus expense.
func (t Totals) Net() int64 {
	return t.Income - t.Expense
}

// DashboardSummary is what the public dashboard shows.
type DashboardSummary struct {
	TotalBalance int64
	KasBalance   int64
	MonthToDate  Totals
	Recent       []Transaction
}

// TotalBalance sums income minus expense across every fund.
func TotalBalance(txs []Transaction) int64 {
	var sum int64
	for _, t := range txs {
		sum += t.Signed()
	}
	return sum
}

// FundBalance is TotalBalance restricted to one fund.
func FundBalance(txs []Transaction, fund Fund) int64 {
	var sum int64
	for _, t := range txs {
		if t.Fund == fund {
			sum += t.Signed()
		}
	}
	return sum
}

// PeriodTotals sums transactions dated on or after the first day of now's month.
// There is no upper bound, so future-dated entries are included.
func PeriodTotals(txs []Transaction, now time.Time) Totals {
	start := MonthOf(now).FirstDay()
	var out Totals
	for _, t := range txs {
		if t.Date.Before(start.Time) {
			continue
		}
		out.add(t)
	}
	return out
}

// MonthlySummary sums the transactions dated in month. A nil fund means all funds.
func MonthlySummary(txs []Transaction, month Month, fund *Fund) Totals {
	var out Totals
	for _, t := range txs {
		if !month.Contains(t.Date.Time) {
			continue
		}
		if fund != nil && t.Fund != *fund {
			continue
		}
		out.add(t)
	}
	return out
}

// Summarize builds the dashboard figures. txs is expected newest first.
func Summarize(txs []Transaction, now time.Time) DashboardSummary {
	recent := txs
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	return DashboardSummary{
		TotalBalance: TotalBalance(txs),
		KasBalance:   FundBalance(txs, FundKas),
		MonthToDate:  PeriodTotals(txs, now),
		Recent:       append([]Transaction(nil), recent...),
	}
}

func (t *Totals) add(tx Transaction) {
	switch tx.Type {
	case Income:
		t.Income += tx.Amount.Rupiah
	case Expense:
		t.Expense += tx.Amount.Rupiah
	}
}
