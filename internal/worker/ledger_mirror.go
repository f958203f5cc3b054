package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kaskelas/internal/amqp"
	"kaskelas/internal/log"
	"kaskelas/internal/report"
	"kaskelas/internal/sheets"
	"kaskelas/internal/store"
)

// LedgerMirror keeps a spreadsheet copy of the transaction ledger. Every
// relevant change rewrites the whole sheet; a periodic reconcile covers
// messages lost while the worker was down.
type LedgerMirror struct {
	txs      store.TransactionStore
	writer   sheets.LedgerWriter
	interval time.Duration
	logger   *log.Logger

	syncMu   sync.Mutex
	lastSync time.Time
	syncs    int

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewLedgerMirror(txs store.TransactionStore, writer sheets.LedgerWriter, interval time.Duration, logger *log.Logger) *LedgerMirror {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &LedgerMirror{
		txs:      txs,
		writer:   writer,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange rewrites the sheet for transaction changes. Payment changes
// count too because deleting a payment cascades to its dues transaction.
func (m *LedgerMirror) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	switch store.Collection(msg.Collection) {
	case store.Transactions, store.Payments:
	default:
		m.logger.DebugContext(ctx, "Ignoring change",
			log.FieldCollection, msg.Collection,
			"op", msg.Op)
		return nil
	}

	m.logger.InfoContext(ctx, "Processing change message",
		log.FieldCollection, msg.Collection,
		"op", msg.Op,
		"id", msg.ID,
		"timestamp", msg.Timestamp)
	return m.Sync(ctx)
}

// Sync reloads every transaction and writes the ledger rows.
func (m *LedgerMirror) Sync(ctx context.Context) error {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	start := time.Now()
	txs, err := m.txs.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if err := m.writer.WriteLedger(ctx, report.LedgerRows(txs)); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}

	m.lastSync = time.Now()
	m.syncs++
	m.logger.InfoContext(ctx, "Ledger mirrored",
		log.FieldOperation, log.OpMirror,
		"rows", len(txs),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// LastSync returns the time of the last successful sync and the sync count.
func (m *LedgerMirror) LastSync() (time.Time, int) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	return m.lastSync, m.syncs
}

// Start runs the reconcile loop. Returns an error if already running.
func (m *LedgerMirror) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("ledger mirror is already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.runLoop(ctx, m.stopCh, m.doneCh)

	m.logger.InfoContext(ctx, "Ledger mirror started", "interval", m.interval)
	return nil
}

// Stop signals the loop and waits for it to finish. After a timed out wait
// the mirror already counts as stopped; the loop exits once its current sync
// returns.
func (m *LedgerMirror) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()

	select {
	case <-done:
		m.logger.InfoContext(ctx, "Ledger mirror stopped")
		return nil
	case <-ctx.Done():
		m.logger.WarnContext(ctx, "Ledger mirror stop timed out")
		return ctx.Err()
	}
}

func (m *LedgerMirror) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *LedgerMirror) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Reconcile immediately on startup
	m.reconcile(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reconcile(ctx)
		}
	}
}

func (m *LedgerMirror) reconcile(ctx context.Context) {
	if err := m.Sync(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Ledger reconcile failed",
			log.FieldOperation, log.OpMirror,
			log.FieldError, err)
	}
}
