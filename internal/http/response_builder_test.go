package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kaskelas/internal/core"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		BodyHTML("<p>ok</p>").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerDataChanged().
		TriggerFormReset().
		TriggerSuccessNotification("Pengeluaran berhasil ditambahkan.").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{
		`"data:changed"`,
		`"form:reset"`,
		`"show-notification"`,
		`"type":"success"`,
		`"duration":3000`,
		`"message":"Pengeluaran berhasil ditambahkan."`,
	} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_NoTriggerHeaderWhenEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/").Write(w)
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("unexpected HX-Trigger header")
	}
	if w.Header().Get("HX-Redirect") != "/" {
		t.Error("HX-Redirect not set")
	}
}

func TestErrorResponseEscapes(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError(`<script>alert("x")</script>`).Write(w)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<script>") {
		t.Fatalf("body not escaped: %s", w.Body.String())
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
		t.Fatalf("missing error notification: %s", w.Header().Get("HX-Trigger"))
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{"wrapped validation", fmt.Errorf("parse: %w", core.ErrEmptyName), http.StatusUnprocessableEntity},
		{"not found", &core.NotFoundError{Entity: "payment", ID: "p1"}, http.StatusNotFound},
		{"conflict", &core.ConflictError{Entity: "transaction", Field: "ref_payment"}, http.StatusConflict},
		{"store", core.NewStoreError("insert", errors.New("disk full")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Fatalf("StatusFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDomainErrorPrefixesUserMessage(t *testing.T) {
	w := httptest.NewRecorder()
	DomainError("Gagal menambah mahasiswa: ", core.ErrDuplicateNIM).Write(w)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Gagal menambah mahasiswa: NIM ini sudah digunakan.") {
		t.Fatalf("body = %s", w.Body.String())
	}
}
