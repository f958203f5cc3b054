package view

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"kaskelas/internal/core"
	"kaskelas/internal/log"
	"kaskelas/internal/store"
)

// Reader is the read side of the store used for bulk fetches.
type Reader interface {
	ListStudents(ctx context.Context) ([]core.Student, error)
	ListPayments(ctx context.Context) ([]core.Payment, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

// Subscriber delivers change events per collection.
type Subscriber interface {
	Subscribe(collection store.Collection, fn func(store.Change)) (unsubscribe func())
}

// Data is one consistent fetch of all three collections.
type Data struct {
	Students     []core.Student
	Payments     []core.Payment
	Transactions []core.Transaction
	LoadedAt     time.Time
}

func (d Data) clone() Data {
	return Data{
		Students:     append([]core.Student(nil), d.Students...),
		Payments:     append([]core.Payment(nil), d.Payments...),
		Transactions: append([]core.Transaction(nil), d.Transactions...),
		LoadedAt:     d.LoadedAt,
	}
}

// Controller owns the fetch and subscribe lifecycle. Any change on any
// collection triggers a full reload of all three.
type Controller struct {
	reader Reader
	subs   Subscriber
	logger *log.Logger
	now    func() time.Time

	started atomic.Uint64 // generation of the most recent Load call

	mu      sync.RWMutex
	data    Data
	applied uint64 // generation of the data currently held
	ready   bool

	lifeMu sync.Mutex
	unsubs []func()

	lisMu     sync.Mutex
	listeners map[int]func(Data)
	nextLis   int
}

func NewController(r Reader, subs Subscriber, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Controller{
		reader:    r,
		subs:      subs,
		logger:    logger.WithComponent(log.ComponentView),
		now:       time.Now,
		listeners: make(map[int]func(Data)),
	}
}

// Load fetches the three collections concurrently and replaces the held
// data. A fetch that finishes after a newer one has been applied is dropped.
func (c *Controller) Load(ctx context.Context) error {
	gen := c.started.Add(1)

	var next Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.reader.ListStudents(gctx)
		if err != nil {
			return fmt.Errorf("list students: %w", err)
		}
		next.Students = s
		return nil
	})
	g.Go(func() error {
		p, err := c.reader.ListPayments(gctx)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		next.Payments = p
		return nil
	})
	g.Go(func() error {
		t, err := c.reader.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		next.Transactions = t
		return nil
	})
	if err := g.Wait(); err != nil {
		c.logger.ErrorContext(ctx, "Bulk fetch failed",
			log.FieldOperation, log.OpReload,
			log.FieldError, err)
		return err
	}
	next.LoadedAt = c.now()

	c.mu.Lock()
	if gen < c.applied {
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "Discarding stale fetch", "generation", gen)
		return nil
	}
	c.data = next
	c.applied = gen
	c.ready = true
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Data reloaded",
		"students", len(next.Students),
		"payments", len(next.Payments),
		"transactions", len(next.Transactions))
	c.emit(next)
	return nil
}

// Start subscribes once per collection and performs the initial fetch.
// Subscriptions stay in place when the first fetch fails so a later change
// retries it.
func (c *Controller) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	if c.unsubs == nil && c.subs != nil {
		for _, col := range store.Collections() {
			c.unsubs = append(c.unsubs, c.subs.Subscribe(col, func(ch store.Change) {
				c.logger.DebugContext(ctx, "Change received",
					log.FieldCollection, string(ch.Collection),
					"op", string(ch.Op))
				_ = c.Load(ctx)
			}))
		}
	}
	c.lifeMu.Unlock()
	return c.Load(ctx)
}

// Stop removes the subscriptions.
func (c *Controller) Stop() {
	c.lifeMu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.lifeMu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// Data returns a copy of the current lists.
func (c *Controller) Data() Data {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.clone()
}

// Ready reports whether the first fetch has completed.
func (c *Controller) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// OnReload registers fn to run after every applied reload.
func (c *Controller) OnReload(fn func(Data)) (remove func()) {
	c.lisMu.Lock()
	id := c.nextLis
	c.nextLis++
	c.listeners[id] = fn
	c.lisMu.Unlock()
	return func() {
		c.lisMu.Lock()
		delete(c.listeners, id)
		c.lisMu.Unlock()
	}
}

func (c *Controller) emit(d Data) {
	c.lisMu.Lock()
	fns := make([]func(Data), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lisMu.Unlock()
	for _, fn := range fns {
		fn(d.clone())
	}
}
