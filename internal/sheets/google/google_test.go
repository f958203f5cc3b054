package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type recordedCall struct {
	method string
	path   string
	input  string
	values [][]interface{}
}

func newTestClient(t *testing.T, status int) (*Client, *[]recordedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{method: r.Method, path: r.URL.Path, input: r.URL.Query().Get("valueInputOption")}
		if r.Method == http.MethodPut {
			var vr gsheet.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&vr); err == nil {
				call.values = vr.Values
			}
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-1", ""), &calls
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteLedgerClearsThenWrites(t *testing.T) {
	c, calls := newTestClient(t, http.StatusOK)
	rows := [][]string{{"id", "jumlah"}, {"a", "=1+1"}}

	if err := c.WriteLedger(context.Background(), rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(*calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(*calls))
	}
	clear, write := (*calls)[0], (*calls)[1]
	if clear.method != http.MethodPost || !strings.HasSuffix(clear.path, ":clear") || !strings.Contains(clear.path, "'Transaksi'!A:J") {
		t.Errorf("unexpected clear call: %+v", clear)
	}
	if write.method != http.MethodPut || !strings.Contains(write.path, "'Transaksi'!A1") || write.input != "RAW" {
		t.Errorf("unexpected write call: %+v", write)
	}
	if len(write.values) != 2 || write.values[1][1] != "=1+1" {
		t.Errorf("unexpected values: %v", write.values)
	}
}

func TestWriteLedgerEmptyOnlyClears(t *testing.T) {
	c, calls := newTestClient(t, http.StatusOK)
	if err := c.WriteLedger(context.Background(), nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected only a clear call, got %d", len(*calls))
	}
}

func TestWriteLedgerSurfacesAPIError(t *testing.T) {
	c, calls := newTestClient(t, http.StatusForbidden)
	err := c.WriteLedger(context.Background(), [][]string{{"id"}})
	if err == nil || !strings.Contains(err.Error(), "clear") {
		t.Fatalf("expected clear error, got %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("write must not run after a failed clear, got %d calls", len(*calls))
	}
}

func TestSheetRangeQuotesName(t *testing.T) {
	c := NewWithService(nil, "id", "Kas O'Brien")
	if got := c.sheetRange("A1"); got != "'Kas O''Brien'!A1" {
		t.Fatalf("sheetRange = %q", got)
	}
	if err := c.WriteLedger(context.Background(), nil); err == nil {
		t.Fatal("expected error without service")
	}
}
