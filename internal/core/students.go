package core

import (
	"sort"
	"strings"
)

// FilterStudents keeps students whose name contains query (case-insensitive)
// or whose NIM contains it, sorted by name.
func FilterStudents(students []Student, query string) []Student {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Student, 0, len(students))
	for _, s := range students {
		if q == "" || strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(s.NIM, q) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// StudentPayments returns the payments of one student, newest first.
func StudentPayments(payments []Payment, studentID string) []Payment {
	var out []Payment
	for _, p := range payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

// TotalPaid sums the Valid payments in ps.
func TotalPaid(ps []Payment) int64 {
	var sum int64
	for _, p := range ps {
		if p.Status == StatusValid {
			sum += p.Amount.Rupiah
		}
	}
	return sum
}

// PendingPayments returns the verification queue, oldest first.
func PendingPayments(payments []Payment) []Payment {
	var out []Payment
	for _, p := range payments {
		if p.Status == StatusPending {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}

// StudentIndex maps student ids to students.
func StudentIndex(students []Student) map[string]Student {
	idx := make(map[string]Student, len(students))
	for _, s := range students {
		idx[s.ID] = s
	}
	return idx
}
