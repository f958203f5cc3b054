package sheets

import "context"

// Ports for outbound adapters.
type (
	// LedgerWriter replaces the mirrored ledger with rows. The first row is
	// the header.
	LedgerWriter interface {
		WriteLedger(ctx context.Context, rows [][]string) error
	}
)
