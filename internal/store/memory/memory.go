// Package memory is a mutex-guarded in-memory store with the same
// constraints as the SQLite schema.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kaskelas/internal/core"
)

type Store struct {
	mu       sync.Mutex
	students []core.Student
	payments []core.Payment
	txs      []core.Transaction
	now      func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Close() error { return nil }

func (s *Store) ListStudents(_ context.Context) ([]core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Student(nil), s.students...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetStudent(_ context.Context, id string) (core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.studentIndex(id)
	if i < 0 {
		return core.Student{}, &core.NotFoundError{Entity: "student", ID: id}
	}
	return s.students[i], nil
}

func (s *Store) CreateStudent(_ context.Context, st core.Student) (core.Student, error) {
	if err := st.Validate(); err != nil {
		return core.Student{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nimTaken(st.NIM, "") {
		return core.Student{}, &core.ConflictError{Entity: "student", Field: "nim", Value: st.NIM}
	}
	st.ID = uuid.NewString()
	st.CreatedAt = s.now().UTC()
	s.students = append(s.students, st)
	return st, nil
}

func (s *Store) UpdateStudent(_ context.Context, st core.Student) (core.Student, error) {
	if err := st.Validate(); err != nil {
		return core.Student{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.studentIndex(st.ID)
	if i < 0 {
		return core.Student{}, &core.NotFoundError{Entity: "student", ID: st.ID}
	}
	if s.nimTaken(st.NIM, st.ID) {
		return core.Student{}, &core.ConflictError{Entity: "student", Field: "nim", Value: st.NIM}
	}
	st.CreatedAt = s.students[i].CreatedAt
	s.students[i] = st
	return st, nil
}

// DeleteStudent refuses while payments still reference the student.
func (s *Store) DeleteStudent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.studentIndex(id)
	if i < 0 {
		return &core.NotFoundError{Entity: "student", ID: id}
	}
	for _, p := range s.payments {
		if p.StudentID == id {
			return core.ErrStudentHasPayments
		}
	}
	s.students = append(s.students[:i], s.students[i+1:]...)
	return nil
}

func (s *Store) ListPayments(_ context.Context) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Payment(nil), s.payments...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetPayment(_ context.Context, id string) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.paymentIndex(id)
	if i < 0 {
		return core.Payment{}, &core.NotFoundError{Entity: "payment", ID: id}
	}
	return s.payments[i], nil
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if p.Status == "" {
		p.Status = core.StatusPending
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.studentIndex(p.StudentID) < 0 {
		return core.Payment{}, &core.NotFoundError{Entity: "student", ID: p.StudentID}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()
	s.payments = append(s.payments, p)
	return p, nil
}

func (s *Store) UpdatePaymentStatus(_ context.Context, id string, status core.PaymentStatus, verifier string) (core.Payment, error) {
	if !status.Valid() {
		return core.Payment{}, core.ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.paymentIndex(id)
	if i < 0 {
		return core.Payment{}, &core.NotFoundError{Entity: "payment", ID: id}
	}
	s.payments[i].Status = status
	s.payments[i].VerifiedBy = core.StringPtr(verifier)
	return s.payments[i], nil
}

// DeletePaymentsByStudent removes the student's payments and the dues
// transactions that reference them.
func (s *Store) DeletePaymentsByStudent(_ context.Context, studentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := map[string]struct{}{}
	kept := s.payments[:0]
	for _, p := range s.payments {
		if p.StudentID == studentID {
			removed[p.ID] = struct{}{}
			continue
		}
		kept = append(kept, p)
	}
	s.payments = kept

	if len(removed) > 0 {
		txs := s.txs[:0]
		for _, t := range s.txs {
			if t.PaymentRef != nil {
				if _, ok := removed[*t.PaymentRef]; ok {
					continue
				}
			}
			txs = append(txs, t)
		}
		s.txs = txs
	}
	return len(removed), nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Transaction(nil), s.txs...)
	sortTransactions(out)
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPaymentRef(t); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) FindTransactionByPayment(_ context.Context, paymentID string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.PaymentRef != nil && *t.PaymentRef == paymentID {
			return t, nil
		}
	}
	return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: paymentID}
}

// checkPaymentRef enforces the ref_payment foreign key and its uniqueness.
func (s *Store) checkPaymentRef(t core.Transaction) error {
	if t.PaymentRef == nil {
		return nil
	}
	if s.paymentIndex(*t.PaymentRef) < 0 {
		return &core.NotFoundError{Entity: "payment", ID: *t.PaymentRef}
	}
	for _, existing := range s.txs {
		if existing.PaymentRef != nil && *existing.PaymentRef == *t.PaymentRef {
			return &core.ConflictError{Entity: "transaction", Field: "ref_payment", Value: *t.PaymentRef}
		}
	}
	return nil
}

func (s *Store) studentIndex(id string) int {
	for i, st := range s.students {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) paymentIndex(id string) int {
	for i, p := range s.payments {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) nimTaken(nim, exceptID string) bool {
	nim = strings.TrimSpace(nim)
	for _, st := range s.students {
		if st.ID != exceptID && strings.TrimSpace(st.NIM) == nim {
			return true
		}
	}
	return false
}

func sortTransactions(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}

type (
	seedStudent struct {
		ID        string    `json:"id"`
		Name      string    `json:"nama"`
		NIM       string    `json:"nim"`
		Cohort    string    `json:"angkatan"`
		CreatedAt time.Time `json:"created_at"`
	}

	seedPayment struct {
		ID         string `json:"id"`
		StudentID  string `json:"student_id"`
		Amount     int64  `json:"jumlah"`
		Date       string `json:"tanggal"`
		Period     string `json:"periode"`
		Status     string `json:"status"`
		VerifiedBy string `json:"verified_by"`
	}

	seedTransaction struct {
		ID          string `json:"id"`
		Date        string `json:"tanggal"`
		Type        string `json:"tipe"`
		Category    string `json:"kategori"`
		Fund        string `json:"sumber_dana"`
		Description string `json:"deskripsi"`
		Amount      int64  `json:"jumlah"`
		RefPayment  string `json:"ref_payment"`
		ReceiptURL  string `json:"nota_url"`
		CreatedBy   string `json:"created_by"`
	}
)

// NewFromFiles builds a store seeded from seed_students.json,
// seed_payments.json and seed_transactions.json in dir. Missing files are
// skipped; malformed ones are an error.
func NewFromFiles(dir string) (*Store, error) {
	s := New()
	created := s.now().UTC()

	var students []seedStudent
	if err := readSeed(filepath.Join(dir, "seed_students.json"), &students); err != nil {
		return nil, err
	}
	for _, r := range students {
		st := core.Student{ID: r.ID, Name: r.Name, NIM: r.NIM, Cohort: r.Cohort, CreatedAt: r.CreatedAt}
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		if st.Cohort == "" {
			st.Cohort = core.DefaultCohort
		}
		if st.CreatedAt.IsZero() {
			st.CreatedAt = created
		}
		if err := st.Validate(); err != nil {
			return nil, seedError("seed_students.json", r.ID, err)
		}
		if s.studentIndex(st.ID) >= 0 {
			return nil, seedError("seed_students.json", st.ID, &core.ConflictError{Entity: "student", Field: "id", Value: st.ID})
		}
		if s.nimTaken(st.NIM, "") {
			return nil, seedError("seed_students.json", st.ID, &core.ConflictError{Entity: "student", Field: "nim", Value: st.NIM})
		}
		s.students = append(s.students, st)
	}

	var payments []seedPayment
	if err := readSeed(filepath.Join(dir, "seed_payments.json"), &payments); err != nil {
		return nil, err
	}
	for _, r := range payments {
		p, err := r.payment(created)
		if err != nil {
			return nil, seedError("seed_payments.json", r.ID, err)
		}
		if s.paymentIndex(p.ID) >= 0 {
			return nil, seedError("seed_payments.json", p.ID, &core.ConflictError{Entity: "payment", Field: "id", Value: p.ID})
		}
		if s.studentIndex(p.StudentID) < 0 {
			return nil, seedError("seed_payments.json", p.ID, &core.NotFoundError{Entity: "student", ID: p.StudentID})
		}
		s.payments = append(s.payments, p)
	}

	var txs []seedTransaction
	if err := readSeed(filepath.Join(dir, "seed_transactions.json"), &txs); err != nil {
		return nil, err
	}
	for _, r := range txs {
		t, err := r.transaction(created)
		if err != nil {
			return nil, seedError("seed_transactions.json", r.ID, err)
		}
		if err := s.checkPaymentRef(t); err != nil {
			return nil, seedError("seed_transactions.json", t.ID, err)
		}
		s.txs = append(s.txs, t)
	}
	return s, nil
}

func (r seedPayment) payment(created time.Time) (core.Payment, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Payment{}, err
	}
	period := core.MonthOf(date.Time)
	if r.Period != "" {
		if period, err = core.ParseMonth(r.Period); err != nil {
			return core.Payment{}, err
		}
	}
	status := core.StatusPending
	if r.Status != "" {
		if status, err = core.ParsePaymentStatus(r.Status); err != nil {
			return core.Payment{}, err
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	p := core.Payment{
		ID:         r.ID,
		StudentID:  r.StudentID,
		Amount:     core.Money{Rupiah: r.Amount},
		Date:       date,
		Period:     period,
		Status:     status,
		VerifiedBy: core.StringPtr(r.VerifiedBy),
		CreatedAt:  created,
	}
	return p, p.Validate()
}

func (r seedTransaction) transaction(created time.Time) (core.Transaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	typ, err := core.ParseTransactionType(r.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	fund, err := core.ParseFund(r.Fund)
	if err != nil {
		return core.Transaction{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	t := core.Transaction{
		ID:          r.ID,
		Date:        date,
		Type:        typ,
		Category:    r.Category,
		Fund:        fund,
		Description: r.Description,
		Amount:      core.Money{Rupiah: r.Amount},
		PaymentRef:  core.StringPtr(r.RefPayment),
		ReceiptURL:  core.StringPtr(r.ReceiptURL),
		CreatedBy:   core.StringPtr(r.CreatedBy),
		CreatedAt:   created,
	}
	return t, t.Validate()
}

func readSeed(path string, dst any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return core.NewStoreError("read seed", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &core.StoreError{Op: "read seed", Message: "invalid seed file " + filepath.Base(path), Detail: err.Error(), Err: err}
	}
	return nil
}

func seedError(file, id string, err error) error {
	return &core.StoreError{Op: "read seed", Message: "invalid record in " + file, Detail: "id " + id + ": " + err.Error(), Err: err}
}
