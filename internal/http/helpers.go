package http

import (
	"html/template"
	"net/http"
	"strings"

	"kaskelas/internal/core"
)

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// origin is the scheme and host share links are built on. A configured
// public base URL wins over the request.
func (s *Server) origin(r *http.Request) string {
	if s.publicBaseURL != "" {
		return strings.TrimRight(s.publicBaseURL, "/")
	}
	return s.detector.Scheme(r) + "://" + r.Host
}

var templateFuncs = template.FuncMap{
	"rupiah": core.FormatRupiah,
	"longDate": func(d core.Date) string {
		return core.FormatLongDate(d.Time)
	},
	"shortDate": func(d core.Date) string {
		return core.FormatShortDate(d.Time)
	},
	"isIncome": func(t core.Transaction) bool {
		return t.Type == core.Income
	},
	"blankStudent": func() core.Student {
		return core.Student{Cohort: core.DefaultCohort}
	},
}
