package memory

import (
	"context"
	"sync"

	"kaskelas/internal/sheets"
)

var _ sheets.LedgerWriter = (*Recorder)(nil)

// Recorder keeps the last ledger written to it. Used for dry runs and tests.
type Recorder struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
	err    error
}

func New() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent writes return err. Pass nil to clear.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) WriteLedger(_ context.Context, rows [][]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows = cloneRows(rows)
	r.writes++
	return nil
}

// Rows returns a copy of the last written ledger.
func (r *Recorder) Rows() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRows(r.rows)
}

// Writes counts successful writes.
func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func cloneRows(in [][]string) [][]string {
	if in == nil {
		return nil
	}
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
