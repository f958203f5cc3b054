package core

import (
	"net/url"
	"strings"
	"time"
)

const (
	StatusPending  PaymentStatus = "pending"
	StatusValid    PaymentStatus = "valid"
	StatusRejected PaymentStatus = "rejected"
)

const (
	Income  TransactionType = "pemasukan"
	Expense TransactionType = "pengeluaran"
)

const (
	FundKas    Fund = "kas"
	FundDonasi Fund = "donasi"
)

// DuesCategory is the category of every transaction posted by a payment approval.
const DuesCategory = "Iuran Wajib"

// DefaultCohort is used when a student is saved without a cohort label.
const DefaultCohort = "PKU 19"

const maxTextLength = 500

type (
	PaymentStatus   string
	TransactionType string
	Fund            string

	Date struct {
		time.Time
	}

	Money struct {
		Rupiah int64
	}

	Student struct {
		ID        string
		Name      string
		NIM       string
		Cohort    string
		CreatedAt time.Time
	}

	Payment struct {
		ID         string
		StudentID  string
		Amount     Money
		Date       Date
		Period     Month // dues month covered by this payment
		Status     PaymentStatus
		VerifiedBy *string
		CreatedAt  time.Time
	}

	Transaction struct {
		ID          string
		Date        Date
		Type        TransactionType
		Category    string
		Fund        Fund
		Description string
		Amount      Money
		PaymentRef  *string // set only on dues income posted by an approval
		ReceiptURL  *string
		CreatedBy   *string
		CreatedAt   time.Time
	}
)

// NewDate returns the UTC midnight of the given calendar day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's wall clock date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ISO returns the date-only ISO form.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Rupiah <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusValid, StatusRejected:
		return true
	}
	return false
}

// Label returns the badge text shown next to a payment.
func (s PaymentStatus) Label() string {
	switch s {
	case StatusValid:
		return "Lunas"
	case StatusRejected:
		return "Ditolak"
	default:
		return "Pending"
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (f Fund) Valid() bool {
	return f == FundKas || f == FundDonasi
}

// Label returns the short display name of the fund.
func (f Fund) Label() string {
	if f == FundKas {
		return "Kas"
	}
	return "Infak/Donasi"
}

// Funds lists every fund in display order.
func Funds() []Fund {
	return []Fund{FundKas, FundDonasi}
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// ParseFund accepts the stored value and the legacy "infak_donasi" spelling.
func ParseFund(s string) (Fund, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "infak_donasi" || v == "infak" {
		v = string(FundDonasi)
	}
	f := Fund(v)
	if !f.Valid() {
		return "", ErrInvalidFund
	}
	return f, nil
}

func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(s.NIM) == "" {
		return ErrEmptyNIM
	}
	if strings.TrimSpace(s.Cohort) == "" {
		return ErrEmptyCohort
	}
	if len(s.Name) > maxTextLength {
		return &ValidationError{Field: "name", Reason: "Nama terlalu panjang."}
	}
	return nil
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.StudentID) == "" {
		return &ValidationError{Field: "student_id", Reason: "Mahasiswa wajib dipilih."}
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if p.Period.IsZero() {
		return ErrInvalidMonth
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Fund.Valid() {
		return ErrInvalidFund
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxTextLength || len(t.Category) > maxTextLength {
		return &ValidationError{Field: "description", Reason: "Deskripsi atau kategori terlalu panjang."}
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.ReceiptURL != nil {
		u, err := url.Parse(*t.ReceiptURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidReceiptURL
		}
	}
	if t.PaymentRef != nil && t.Type != Income {
		return &ValidationError{Field: "ref_payment", Reason: "Hanya pemasukan yang dapat merujuk pembayaran."}
	}
	return nil
}

// IsDues reports whether t has the shape of a transaction posted by an approval.
func (t Transaction) IsDues() bool {
	return t.Type == Income && t.Category == DuesCategory && t.Fund == FundKas && t.PaymentRef != nil
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() int64 {
	if t.Type == Expense {
		return -t.Amount.Rupiah
	}
	return t.Amount.Rupiah
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed value or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
