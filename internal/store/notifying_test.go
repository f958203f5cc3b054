package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kaskelas/internal/core"
	"kaskelas/internal/store"
	"kaskelas/internal/store/memory"
)

type recorder struct{ changes []store.Change }

func (r *recorder) Notify(_ context.Context, c store.Change) { r.changes = append(r.changes, c) }

func TestNotifyingEmitsOnSuccessOnly(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s := store.NewNotifying(memory.New(), rec)

	st, err := s.CreateStudent(ctx, core.Student{Name: "Ahmad", NIM: "19001", Cohort: core.DefaultCohort})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	if _, err := s.CreateStudent(ctx, core.Student{Name: "Budi", NIM: "19001", Cohort: core.DefaultCohort}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(rec.changes) != 1 || rec.changes[0].Collection != store.Students || rec.changes[0].ID != st.ID {
		t.Fatalf("changes = %+v", rec.changes)
	}

	p, err := s.CreatePayment(ctx, core.Payment{
		StudentID: st.ID,
		Amount:    core.Money{Rupiah: 50000},
		Date:      core.NewDate(2024, 3, 1),
		Period:    core.Month{Year: 2024, Month: time.March},
		Status:    core.StatusPending,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := s.UpdatePaymentStatus(ctx, p.ID, core.StatusValid, "admin"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.UpdatePaymentStatus(ctx, "missing", core.StatusValid, "admin"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n, err := s.DeletePaymentsByStudent(ctx, st.ID); err != nil || n != 1 {
		t.Fatalf("delete payments: %d %v", n, err)
	}

	want := []store.Collection{store.Students, store.Payments, store.Payments, store.Payments, store.Transactions}
	if len(rec.changes) != len(want) {
		t.Fatalf("changes = %+v", rec.changes)
	}
	for i, c := range want {
		if rec.changes[i].Collection != c {
			t.Fatalf("change %d = %s, want %s", i, rec.changes[i].Collection, c)
		}
	}
}

func TestNotifyingNilNotifier(t *testing.T) {
	s := store.NewNotifying(memory.New(), nil)
	if _, err := s.CreateStudent(context.Background(), core.Student{Name: "A", NIM: "1", Cohort: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}
}
