package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClasses(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{ErrInvalidAmount, ErrValidation},
		{&NotFoundError{Entity: "payment", ID: "p1"}, ErrNotFound},
		{&ConflictError{Entity: "student", Field: "nim", Value: "1"}, ErrConflict},
		{NewStoreError("list", errors.New("disk full")), ErrStore},
		{fmt.Errorf("wrapped: %w", ErrEmptyName), ErrValidation},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Fatalf("%v should match %v", tc.err, tc.want)
		}
	}
}

func TestStoreErrorText(t *testing.T) {
	cause := errors.New("database is locked")
	se := NewStoreError("insert", cause)
	se.Detail = "busy"
	se.Hint = "retry later"
	if se.Error() != "database is locked\nDetails: busy\nHint: retry later" {
		t.Fatalf("unexpected text %q", se.Error())
	}
	if !errors.Is(se, cause) {
		t.Fatalf("store error should unwrap to cause")
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ConflictError{Entity: "student", Field: "nim", Value: "1"}, "NIM ini sudah terdaftar. Harap gunakan NIM yang unik."},
		{&ConflictError{Entity: "transaction", Field: "ref_payment", Value: "p1"}, "Pembayaran ini sudah tercatat sebagai transaksi."},
		{ErrEmptyName, "Nama wajib diisi."},
		{fmt.Errorf("approve: %w", &NotFoundError{Entity: "payment", ID: "x"}), "Pembayaran tidak ditemukan."},
		{&NotFoundError{Entity: "thing", ID: "x"}, "Data tidak ditemukan."},
		{NewStoreError("list", errors.New("boom")), "boom"},
		{&StoreError{}, "Terjadi kesalahan yang tidak diketahui. Silakan coba lagi atau periksa log server untuk detail teknis."},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
