package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"kaskelas/internal/core"
)

func TestRequestBodyParser_Form(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/students", strings.NewReader("name=+Ahmad%00+Fauzi+&nim=19001"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p, fail := ParseBodyOrFail(req)
	if fail != nil {
		t.Fatal("unexpected parse failure")
	}
	if p.IsJSON() {
		t.Error("form body reported as JSON")
	}
	if got := p.Get("name"); got != "Ahmad Fauzi" {
		t.Errorf("name = %q", got)
	}
	if got := p.Get("nim"); got != "19001" {
		t.Errorf("nim = %q", got)
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("missing = %q", got)
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/expenses",
		strings.NewReader(`{"amount": 25000, "category": "Konsumsi", "fund": "kas"}`))
	req.Header.Set("Content-Type", "application/json")

	p, fail := ParseBodyOrFail(req)
	if fail != nil {
		t.Fatal("unexpected parse failure")
	}
	if !p.IsJSON() {
		t.Fatal("expected JSON")
	}
	if got := p.Get("amount"); got != "25000" {
		t.Errorf("amount = %q", got)
	}
	if got := p.Get("category"); got != "Konsumsi" {
		t.Errorf("category = %q", got)
	}
}

func TestRequestBodyParser_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	req.Header.Set("Content-Type", "application/json")

	_, fail := ParseBodyOrFail(req)
	if fail == nil {
		t.Fatal("expected failure")
	}
	w := httptest.NewRecorder()
	fail.Write(w)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRequestBodyParser_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	p, fail := ParseBodyOrFail(req)
	if fail != nil || p.Get("x") != "" {
		t.Fatal("empty body should parse to no values")
	}
}

func TestMonthParam(t *testing.T) {
	now := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		query string
		want  core.Month
	}{
		{"month=2024-03", core.Month{Year: 2024, Month: time.March}},
		{"month=2024-13", core.Month{Year: 2024, Month: time.July}},
		{"", core.Month{Year: 2024, Month: time.July}},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		if got := monthParam(q, now); got != tt.want {
			t.Errorf("monthParam(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
