package memory

import (
	"context"
	"errors"
	"testing"
)

func TestRecorderKeepsLastWrite(t *testing.T) {
	r := New()
	rows := [][]string{{"id", "jumlah"}, {"a", "1"}}
	if err := r.WriteLedger(context.Background(), rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows[1][1] = "changed"

	got := r.Rows()
	if len(got) != 2 || got[1][1] != "1" {
		t.Fatalf("recorder must copy rows, got %v", got)
	}
	if r.Writes() != 1 {
		t.Fatalf("writes = %d", r.Writes())
	}
}

func TestRecorderFailure(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	r.FailWith(boom)
	if err := r.WriteLedger(context.Background(), [][]string{{"id"}}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if r.Writes() != 0 || r.Rows() != nil {
		t.Fatalf("failed write must not be recorded")
	}
	r.FailWith(nil)
	if err := r.WriteLedger(context.Background(), [][]string{{"id"}}); err != nil {
		t.Fatalf("write after clear: %v", err)
	}
}
