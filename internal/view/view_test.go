package view

import (
	"net/url"
	"testing"
	"time"

	"kaskelas/internal/core"
)

func TestParse(t *testing.T) {
	march := core.Month{Year: 2024, Month: time.March}
	cases := []struct {
		query string
		name  Name
		month core.Month
		fund  string
	}{
		{"", Dashboard, core.Month{}, ""},
		{"view=dashboard&month=2024-03", Dashboard, core.Month{}, ""},
		{"view=snapshot&month=2024-03", Snapshot, march, ""},
		{"view=snapshot&month=2024-03&fund=kas", Snapshot, march, "kas"},
		{"view=snapshot&month=2024-03&fund=donasi", Snapshot, march, "donasi"},
		{"view=snapshot&month=2024-03&fund=semua", Snapshot, march, ""},
		{"view=snapshot&month=2024-03&fund=bank", Snapshot, march, ""},
		{"view=snapshot", Dashboard, core.Month{}, ""},
		{"view=snapshot&month=2024-13", Dashboard, core.Month{}, ""},
		{"view=snapshot&month=March", Dashboard, core.Month{}, ""},
		{"view=other&month=2024-03", Dashboard, core.Month{}, ""},
	}
	for _, tc := range cases {
		q, err := url.ParseQuery(tc.query)
		if err != nil {
			t.Fatalf("bad query %q: %v", tc.query, err)
		}
		v := Parse(q)
		if v.Name != tc.name || v.Month != tc.month {
			t.Errorf("%q: got %+v", tc.query, v)
		}
		if got := core.Deref((*string)(v.Fund)); got != tc.fund {
			t.Errorf("%q: fund = %q, want %q", tc.query, got, tc.fund)
		}
	}
}

func TestQueryRoundTrip(t *testing.T) {
	kas := core.FundKas
	v := View{Name: Snapshot, Month: core.Month{Year: 2024, Month: time.March}, Fund: &kas}
	if got := v.Query().Encode(); got != "fund=kas&month=2024-03&view=snapshot" {
		t.Fatalf("Query = %q", got)
	}
	if back := Parse(v.Query()); back.Name != Snapshot || back.Fund == nil || *back.Fund != kas {
		t.Fatalf("round trip lost data: %+v", back)
	}
	if q := (View{Name: Dashboard}).Query(); len(q) != 0 {
		t.Fatalf("dashboard query should be empty, got %v", q)
	}
	if FundParam(nil) != "semua" || FundParam(&kas) != "kas" {
		t.Fatal("unexpected fund params")
	}
}
