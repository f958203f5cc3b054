// Package view derives the page descriptor from the query string and keeps
// the in-memory copy of all three collections current.
package view

import (
	"net/url"
	"strings"

	"kaskelas/internal/core"
)

type Name string

const (
	Dashboard Name = "dashboard"
	Snapshot  Name = "snapshot"
)

// View is the page descriptor derived from the query parameters.
type View struct {
	Name  Name
	Month core.Month // set only for Snapshot
	Fund  *core.Fund // nil means all funds
}

// Parse reads view, month and fund. A snapshot without a valid month falls
// back to the dashboard. Unknown fund values mean all funds.
func Parse(q url.Values) View {
	v := View{Name: Dashboard}
	if strings.TrimSpace(q.Get("view")) != string(Snapshot) {
		return v
	}
	m, err := core.ParseMonth(q.Get("month"))
	if err != nil {
		return v
	}
	v.Name = Snapshot
	v.Month = m
	v.Fund = ParseFundFilter(q.Get("fund"))
	return v
}

// ParseFundFilter maps "semua", "" and unknown values to nil.
func ParseFundFilter(s string) *core.Fund {
	if strings.EqualFold(strings.TrimSpace(s), "semua") {
		return nil
	}
	f, err := core.ParseFund(s)
	if err != nil {
		return nil
	}
	return &f
}

// FundParam is the inverse of ParseFundFilter.
func FundParam(f *core.Fund) string {
	if f == nil {
		return "semua"
	}
	return string(*f)
}

// Query encodes v back into query parameters.
func (v View) Query() url.Values {
	q := url.Values{}
	if v.Name != Snapshot {
		return q
	}
	q.Set("view", string(Snapshot))
	q.Set("month", v.Month.String())
	if v.Fund != nil {
		q.Set("fund", string(*v.Fund))
	}
	return q
}
