package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kaskelas/internal/core"
)

func mustStudent(t *testing.T, s *Store, name, nim string) core.Student {
	t.Helper()
	st, err := s.CreateStudent(context.Background(), core.Student{Name: name, NIM: nim, Cohort: core.DefaultCohort})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	return st
}

func mustPayment(t *testing.T, s *Store, studentID string, day int) core.Payment {
	t.Helper()
	p, err := s.CreatePayment(context.Background(), core.Payment{
		StudentID: studentID,
		Amount:    core.Money{Rupiah: 50000},
		Date:      core.NewDate(2024, 3, day),
		Period:    core.Month{Year: 2024, Month: time.March},
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return p
}

func TestStudentConstraints(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := mustStudent(t, s, "Ahmad", "19001")
	b := mustStudent(t, s, "Budi", "19002")

	if _, err := s.CreateStudent(ctx, core.Student{Name: "Citra", NIM: "19001", Cohort: "x"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict on duplicate nim, got %v", err)
	}

	b.NIM = a.NIM
	if _, err := s.UpdateStudent(ctx, b); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict on update, got %v", err)
	}
	a.Name = "Ahmad F"
	if _, err := s.UpdateStudent(ctx, a); err != nil {
		t.Fatalf("update own nim: %v", err)
	}
	if got, _ := s.GetStudent(ctx, a.ID); got.Name != "Ahmad F" || got.CreatedAt.IsZero() {
		t.Fatalf("update not stored: %+v", got)
	}

	if _, err := s.GetStudent(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteStudentRestrictedByPayments(t *testing.T) {
	ctx := context.Background()
	s := New()
	st := mustStudent(t, s, "Ahmad", "19001")
	mustPayment(t, s, st.ID, 1)

	if err := s.DeleteStudent(ctx, st.ID); !errors.Is(err, core.ErrStore) {
		t.Fatalf("expected restrict error, got %v", err)
	}
	if n, err := s.DeletePaymentsByStudent(ctx, st.ID); err != nil || n != 1 {
		t.Fatalf("delete payments: %d %v", n, err)
	}
	if err := s.DeleteStudent(ctx, st.ID); err != nil {
		t.Fatalf("delete student: %v", err)
	}
}

func TestPaymentCascadeToDuesTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()
	st := mustStudent(t, s, "Ahmad", "19001")
	p := mustPayment(t, s, st.ID, 2)

	dues := core.NewDuesTransaction(p, st, "admin")
	if _, err := s.CreateTransaction(ctx, dues); err != nil {
		t.Fatalf("create dues: %v", err)
	}
	if _, err := s.CreateTransaction(ctx, dues); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ref_payment conflict, got %v", err)
	}
	if _, err := s.FindTransactionByPayment(ctx, p.ID); err != nil {
		t.Fatalf("find by payment: %v", err)
	}

	manual := core.Transaction{
		Date: core.NewDate(2024, 3, 9), Type: core.Expense, Category: "Konsumsi",
		Fund: core.FundKas, Description: "Snack", Amount: core.Money{Rupiah: 1000},
	}
	if _, err := s.CreateTransaction(ctx, manual); err != nil {
		t.Fatalf("create manual: %v", err)
	}

	if _, err := s.DeletePaymentsByStudent(ctx, st.ID); err != nil {
		t.Fatalf("delete payments: %v", err)
	}
	txs, _ := s.ListTransactions(ctx)
	if len(txs) != 1 || txs[0].Description != "Snack" {
		t.Fatalf("expected only manual transaction left, got %+v", txs)
	}
}

func TestCreateTransactionUnknownPayment(t *testing.T) {
	s := New()
	ref := "missing"
	tx := core.Transaction{
		Date: core.NewDate(2024, 3, 9), Type: core.Income, Category: core.DuesCategory,
		Fund: core.FundKas, Description: "x", Amount: core.Money{Rupiah: 1000}, PaymentRef: &ref,
	}
	if _, err := s.CreateTransaction(context.Background(), tx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	st := mustStudent(t, s, "Ahmad", "19001")
	p := mustPayment(t, s, st.ID, 2)
	if p.Status != core.StatusPending {
		t.Fatalf("default status = %s", p.Status)
	}

	got, err := s.UpdatePaymentStatus(ctx, p.ID, core.StatusRejected, "admin")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != core.StatusRejected || core.Deref(got.VerifiedBy) != "admin" {
		t.Fatalf("payment = %+v", got)
	}
	if _, err := s.UpdatePaymentStatus(ctx, p.ID, "lunas", "admin"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListTransactionsOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	for _, day := range []int{5, 10, 5} {
		_, err := s.CreateTransaction(ctx, core.Transaction{
			Date: core.NewDate(2024, 3, day), Type: core.Income, Category: "Lain",
			Fund: core.FundDonasi, Description: "d", Amount: core.Money{Rupiah: int64(day)},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	txs, _ := s.ListTransactions(ctx)
	if txs[0].Date.Day() != 10 || !txs[1].CreatedAt.After(txs[2].CreatedAt) {
		t.Fatalf("unexpected order: %+v", txs)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("seed_students.json", `[{"id":"s1","nama":"Ahmad","nim":"19001"}]`)
	write("seed_payments.json", `[{"id":"p1","student_id":"s1","jumlah":50000,"tanggal":"2024-03-02","status":"valid"}]`)
	write("seed_transactions.json", `[{"id":"t1","tanggal":"2024-03-02","tipe":"pemasukan","kategori":"Iuran Wajib","sumber_dana":"infak_donasi","deskripsi":"x","jumlah":50000}]`)

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	ctx := context.Background()
	st, err := s.GetStudent(ctx, "s1")
	if err != nil || st.Cohort != core.DefaultCohort {
		t.Fatalf("student = %+v, %v", st, err)
	}
	p, err := s.GetPayment(ctx, "p1")
	if err != nil || p.Period.String() != "2024-03" || p.Status != core.StatusValid {
		t.Fatalf("payment = %+v, %v", p, err)
	}
	txs, _ := s.ListTransactions(ctx)
	if len(txs) != 1 || txs[0].Fund != core.FundDonasi {
		t.Fatalf("transactions = %+v", txs)
	}

	empty, err := NewFromFiles(t.TempDir())
	if err != nil {
		t.Fatalf("missing files should be skipped: %v", err)
	}
	if list, _ := empty.ListStudents(ctx); len(list) != 0 {
		t.Fatalf("expected empty store")
	}

	write("seed_payments.json", `[{"id":"p1","student_id":"s1","jumlah":0,"tanggal":"2024-03-02"}]`)
	if _, err := NewFromFiles(dir); !errors.Is(err, core.ErrStore) {
		t.Fatalf("expected seed error, got %v", err)
	}
}

func TestNewFromFilesRejectsBrokenConstraints(t *testing.T) {
	cases := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{
			name: "duplicate nim",
			files: map[string]string{
				"seed_students.json": `[{"id":"s1","nama":"Ahmad","nim":"19001"},{"id":"s2","nama":"Budi","nim":"19001"}]`,
			},
			want: core.ErrConflict,
		},
		{
			name: "payment for unknown student",
			files: map[string]string{
				"seed_payments.json": `[{"id":"p1","student_id":"ghost","jumlah":50000,"tanggal":"2024-03-02"}]`,
			},
			want: core.ErrNotFound,
		},
		{
			name: "ref_payment posted twice",
			files: map[string]string{
				"seed_students.json": `[{"id":"s1","nama":"Ahmad","nim":"19001"}]`,
				"seed_payments.json": `[{"id":"p1","student_id":"s1","jumlah":50000,"tanggal":"2024-03-02","status":"valid"}]`,
				"seed_transactions.json": `[
					{"id":"t1","tanggal":"2024-03-02","tipe":"pemasukan","kategori":"Iuran Wajib","sumber_dana":"kas","deskripsi":"x","jumlah":50000,"ref_payment":"p1"},
					{"id":"t2","tanggal":"2024-03-02","tipe":"pemasukan","kategori":"Iuran Wajib","sumber_dana":"kas","deskripsi":"y","jumlah":50000,"ref_payment":"p1"}
				]`,
			},
			want: core.ErrConflict,
		},
		{
			name: "ref_payment to unknown payment",
			files: map[string]string{
				"seed_transactions.json": `[{"id":"t1","tanggal":"2024-03-02","tipe":"pemasukan","kategori":"Iuran Wajib","sumber_dana":"kas","deskripsi":"x","jumlah":50000,"ref_payment":"p9"}]`,
			},
			want: core.ErrNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, body := range tc.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			_, err := NewFromFiles(dir)
			if !errors.Is(err, core.ErrStore) || !errors.Is(err, tc.want) {
				t.Fatalf("expected store error wrapping %v, got %v", tc.want, err)
			}
		})
	}
}
