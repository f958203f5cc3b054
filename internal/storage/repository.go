// Package storage is the SQLite implementation of the store ports.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"kaskelas/internal/core"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	// fixed width so created_at sorts lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// DSN returns the connection string with foreign keys and a busy timeout enabled.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(timeLayout)
}

// ---- students ----

const studentColumns = `id, name, nim, cohort, created_at`

func (r *SQLiteRepository) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY name, nim`)
	if err != nil {
		return nil, classify("list students", err)
	}
	defer rows.Close()

	var out []core.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, classify("list students", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list students", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetStudent(ctx context.Context, id string) (core.Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Student{}, &core.NotFoundError{Entity: "student", ID: id}
	}
	if err != nil {
		return core.Student{}, classify("get student", err)
	}
	return s, nil
}

func (r *SQLiteRepository) CreateStudent(ctx context.Context, s core.Student) (core.Student, error) {
	if err := s.Validate(); err != nil {
		return core.Student{}, err
	}
	s.ID = uuid.NewString()
	created := r.timestamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO students (id, name, nim, cohort, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, strings.TrimSpace(s.Name), strings.TrimSpace(s.NIM), strings.TrimSpace(s.Cohort), created)
	if err != nil {
		if isUnique(err) {
			return core.Student{}, &core.ConflictError{Entity: "student", Field: "nim", Value: s.NIM}
		}
		return core.Student{}, classify("create student", err)
	}
	s.CreatedAt, _ = time.Parse(timeLayout, created)

	slog.InfoContext(ctx, "Student saved to SQLite", "id", s.ID, "nim", s.NIM)
	return s, nil
}

func (r *SQLiteRepository) UpdateStudent(ctx context.Context, s core.Student) (core.Student, error) {
	if err := s.Validate(); err != nil {
		return core.Student{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET name = ?, nim = ?, cohort = ? WHERE id = ?`,
		strings.TrimSpace(s.Name), strings.TrimSpace(s.NIM), strings.TrimSpace(s.Cohort), s.ID)
	if err != nil {
		if isUnique(err) {
			return core.Student{}, &core.ConflictError{Entity: "student", Field: "nim", Value: s.NIM}
		}
		return core.Student{}, classify("update student", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Student{}, &core.NotFoundError{Entity: "student", ID: s.ID}
	}
	return r.GetStudent(ctx, s.ID)
}

func (r *SQLiteRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		if isForeignKey(err) {
			return core.ErrStudentHasPayments
		}
		return classify("delete student", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "student", ID: id}
	}
	slog.InfoContext(ctx, "Student deleted from SQLite", "id", id)
	return nil
}

// ---- payments ----

const paymentColumns = `id, student_id, amount, paid_on, period, status, verified_by, created_at`

func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY paid_on DESC, created_at DESC`)
	if err != nil {
		return nil, classify("list payments", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, classify("list payments", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list payments", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, &core.NotFoundError{Entity: "payment", ID: id}
	}
	if err != nil {
		return core.Payment{}, classify("get payment", err)
	}
	return p, nil
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if p.Status == "" {
		p.Status = core.StatusPending
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	p.ID = uuid.NewString()
	created := r.timestamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, student_id, amount, paid_on, period, status, verified_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.StudentID, p.Amount.Rupiah, p.Date.ISO(), p.Period.String(), string(p.Status),
		nullable(p.VerifiedBy), created)
	if err != nil {
		if isForeignKey(err) {
			return core.Payment{}, &core.NotFoundError{Entity: "student", ID: p.StudentID}
		}
		return core.Payment{}, classify("create payment", err)
	}
	p.CreatedAt, _ = time.Parse(timeLayout, created)
	return p, nil
}

func (r *SQLiteRepository) UpdatePaymentStatus(ctx context.Context, id string, status core.PaymentStatus, verifier string) (core.Payment, error) {
	if !status.Valid() {
		return core.Payment{}, core.ErrInvalidStatus
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, verified_by = ? WHERE id = ?`,
		string(status), nullable(core.StringPtr(verifier)), id)
	if err != nil {
		return core.Payment{}, classify("update payment status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Payment{}, &core.NotFoundError{Entity: "payment", ID: id}
	}

	slog.InfoContext(ctx, "Payment status updated", "id", id, "status", status, "verified_by", verifier)
	return r.GetPayment(ctx, id)
}

// DeletePaymentsByStudent relies on ON DELETE CASCADE for the dues transactions.
func (r *SQLiteRepository) DeletePaymentsByStudent(ctx context.Context, studentID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE student_id = ?`, studentID)
	if err != nil {
		return 0, classify("delete payments", err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Payments deleted from SQLite", "student_id", studentID, "count", n)
	return int(n), nil
}

// ---- transactions ----

const transactionColumns = `id, tanggal, tipe, kategori, sumber_dana, deskripsi, amount, ref_payment, nota_url, created_by, created_at`

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY tanggal DESC, created_at DESC`)
	if err != nil {
		return nil, classify("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, classify("list transactions", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list transactions", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	created := r.timestamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date.ISO(), string(t.Type), t.Category, string(t.Fund), t.Description, t.Amount.Rupiah,
		nullable(t.PaymentRef), nullable(t.ReceiptURL), nullable(t.CreatedBy), created)
	if err != nil {
		switch {
		case isUnique(err) && t.PaymentRef != nil:
			return core.Transaction{}, &core.ConflictError{Entity: "transaction", Field: "ref_payment", Value: *t.PaymentRef}
		case isForeignKey(err) && t.PaymentRef != nil:
			return core.Transaction{}, &core.NotFoundError{Entity: "payment", ID: *t.PaymentRef}
		}
		return core.Transaction{}, classify("create transaction", err)
	}
	t.CreatedAt, _ = time.Parse(timeLayout, created)

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"fund", t.Fund,
		"amount", t.Amount.Rupiah,
		"ref_payment", core.Deref(t.PaymentRef))
	return t, nil
}

func (r *SQLiteRepository) FindTransactionByPayment(ctx context.Context, paymentID string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE ref_payment = ?`, paymentID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: paymentID}
	}
	if err != nil {
		return core.Transaction{}, classify("find transaction", err)
	}
	return t, nil
}

// ---- scanning ----

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(sc scanner) (core.Student, error) {
	var (
		s       core.Student
		created string
	)
	if err := sc.Scan(&s.ID, &s.Name, &s.NIM, &s.Cohort, &created); err != nil {
		return core.Student{}, err
	}
	s.CreatedAt = parseTime(created)
	return s, nil
}

func scanPayment(sc scanner) (core.Payment, error) {
	var (
		p                      core.Payment
		paidOn, period, status string
		verifiedBy             sql.NullString
		created                string
	)
	if err := sc.Scan(&p.ID, &p.StudentID, &p.Amount.Rupiah, &paidOn, &period, &status, &verifiedBy, &created); err != nil {
		return core.Payment{}, err
	}
	d, err := time.Parse(dateLayout, paidOn)
	if err != nil {
		return core.Payment{}, fmt.Errorf("parse paid_on %q: %w", paidOn, err)
	}
	m, err := time.Parse(monthLayout, period)
	if err != nil {
		return core.Payment{}, fmt.Errorf("parse period %q: %w", period, err)
	}
	p.Date = core.Date{Time: d}
	p.Period = core.MonthOf(m)
	p.Status = core.PaymentStatus(status)
	p.VerifiedBy = fromNull(verifiedBy)
	p.CreatedAt = parseTime(created)
	return p, nil
}

func scanTransaction(sc scanner) (core.Transaction, error) {
	var (
		t                       core.Transaction
		tanggal, tipe, fund     string
		ref, receipt, createdBy sql.NullString
		created                 string
	)
	if err := sc.Scan(&t.ID, &tanggal, &tipe, &t.Category, &fund, &t.Description, &t.Amount.Rupiah,
		&ref, &receipt, &createdBy, &created); err != nil {
		return core.Transaction{}, err
	}
	d, err := time.Parse(dateLayout, tanggal)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse tanggal %q: %w", tanggal, err)
	}
	t.Date = core.Date{Time: d}
	t.Type = core.TransactionType(tipe)
	t.Fund = core.Fund(fund)
	t.PaymentRef = fromNull(ref)
	t.ReceiptURL = fromNull(receipt)
	t.CreatedBy = fromNull(createdBy)
	t.CreatedAt = parseTime(created)
	return t, nil
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	v := ns.String
	return &v
}

// ---- error classification ----

func sqliteCode(err error) (int, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

func isUnique(err error) bool {
	if code, ok := sqliteCode(err); ok {
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKey(err error) bool {
	if code, ok := sqliteCode(err); ok {
		return code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// classify wraps driver failures as core.StoreError, keeping context errors intact.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	se := core.NewStoreError(op, err)
	if code, ok := sqliteCode(err); ok {
		se.Detail = fmt.Sprintf("sqlite code %d", code)
		if code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED {
			se.Hint = "Database sedang sibuk, coba lagi."
		}
	}
	return se
}
