package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Concrete errors below match one of these with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStore      = errors.New("store error")
	ErrValidation = errors.New("validation error")
)

var (
	ErrInvalidAmount     = &ValidationError{Field: "amount", Reason: "Jumlah harus berupa bilangan bulat positif."}
	ErrInvalidDate       = &ValidationError{Field: "date", Reason: "Tanggal tidak valid."}
	ErrInvalidMonth      = &ValidationError{Field: "month", Reason: "Bulan harus berformat YYYY-MM."}
	ErrInvalidFund       = &ValidationError{Field: "fund", Reason: "Sumber dana tidak valid."}
	ErrInvalidType       = &ValidationError{Field: "type", Reason: "Tipe transaksi tidak valid."}
	ErrInvalidStatus     = &ValidationError{Field: "status", Reason: "Status pembayaran tidak valid."}
	ErrInvalidReceiptURL = &ValidationError{Field: "receipt_url", Reason: "URL nota tidak valid."}
	ErrEmptyName         = &ValidationError{Field: "name", Reason: "Nama wajib diisi."}
	ErrEmptyNIM          = &ValidationError{Field: "nim", Reason: "NIM wajib diisi."}
	ErrEmptyCohort       = &ValidationError{Field: "cohort", Reason: "Angkatan wajib diisi."}
	ErrEmptyCategory     = &ValidationError{Field: "category", Reason: "Kategori wajib diisi."}
	ErrEmptyDescription  = &ValidationError{Field: "description", Reason: "Deskripsi wajib diisi."}
	ErrDuplicateNIM      = &ValidationError{Field: "nim", Reason: "NIM ini sudah digunakan. Harap gunakan NIM yang unik."}
	ErrMissingVerifier   = &ValidationError{Field: "verified_by", Reason: "Identitas admin wajib ada."}
)

// ErrStudentHasPayments is returned when a student delete would orphan payments.
var ErrStudentHasPayments = &StoreError{
	Op:      "delete student",
	Message: "Mahasiswa masih memiliki data pembayaran.",
	Hint:    "Hapus pembayaran mahasiswa terlebih dahulu.",
}

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a unique constraint violation.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// StoreError carries a backend failure. Message, Detail and Hint are shown as-is.
type StoreError struct {
	Op      string
	Message string
	Detail  string
	Hint    string
	Err     error
}

// NewStoreError wraps err, taking its text as the message.
func NewStoreError(op string, err error) *StoreError {
	se := &StoreError{Op: op, Err: err}
	if err != nil {
		se.Message = err.Error()
	}
	return se
}

func (e *StoreError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Detail != "" {
		b.WriteString("\nDetails: " + e.Detail)
	}
	if e.Hint != "" {
		b.WriteString("\nHint: " + e.Hint)
	}
	return b.String()
}

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func (e *StoreError) Unwrap() error { return e.Err }

var entityNames = map[string]string{
	"student":     "Mahasiswa",
	"payment":     "Pembayaran",
	"transaction": "Transaksi",
}

// UserMessage turns err into the Indonesian text shown in notifications.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		ce *ConflictError
		ve *ValidationError
		nf *NotFoundError
		se *StoreError
	)
	switch {
	case errors.As(err, &ce):
		switch ce.Field {
		case "nim":
			return "NIM ini sudah terdaftar. Harap gunakan NIM yang unik."
		case "ref_payment":
			return "Pembayaran ini sudah tercatat sebagai transaksi."
		}
		return "Terjadi konflik data duplikat. Harap periksa kembali isian Anda."
	case errors.As(err, &ve):
		return ve.Reason
	case errors.As(err, &nf):
		name, ok := entityNames[nf.Entity]
		if !ok {
			name = "Data"
		}
		return name + " tidak ditemukan."
	case errors.As(err, &se):
		if msg := se.Error(); msg != "" {
			return msg
		}
	default:
		if msg := err.Error(); msg != "" {
			return msg
		}
	}
	return "Terjadi kesalahan yang tidak diketahui. Silakan coba lagi atau periksa log server untuk detail teknis."
}
