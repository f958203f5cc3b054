package store

import (
	"context"
	"time"

	"kaskelas/internal/core"
)

// Notifying wraps a Store and emits one Change per successful mutation.
type Notifying struct {
	Store
	notifier Notifier
	now      func() time.Time
}

// NewNotifying decorates s. A nil notifier makes the wrapper a pass-through.
func NewNotifying(s Store, n Notifier) *Notifying {
	return &Notifying{Store: s, notifier: n, now: time.Now}
}

func (n *Notifying) emit(ctx context.Context, c Collection, op Op, id string) {
	if n.notifier == nil {
		return
	}
	n.notifier.Notify(ctx, Change{Collection: c, Op: op, ID: id, At: n.now().UTC()})
}

func (n *Notifying) CreateStudent(ctx context.Context, s core.Student) (core.Student, error) {
	out, err := n.Store.CreateStudent(ctx, s)
	if err == nil {
		n.emit(ctx, Students, OpInsert, out.ID)
	}
	return out, err
}

func (n *Notifying) UpdateStudent(ctx context.Context, s core.Student) (core.Student, error) {
	out, err := n.Store.UpdateStudent(ctx, s)
	if err == nil {
		n.emit(ctx, Students, OpUpdate, out.ID)
	}
	return out, err
}

func (n *Notifying) DeleteStudent(ctx context.Context, id string) error {
	err := n.Store.DeleteStudent(ctx, id)
	if err == nil {
		n.emit(ctx, Students, OpDelete, id)
	}
	return err
}

func (n *Notifying) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	out, err := n.Store.CreatePayment(ctx, p)
	if err == nil {
		n.emit(ctx, Payments, OpInsert, out.ID)
	}
	return out, err
}

func (n *Notifying) UpdatePaymentStatus(ctx context.Context, id string, status core.PaymentStatus, verifier string) (core.Payment, error) {
	out, err := n.Store.UpdatePaymentStatus(ctx, id, status, verifier)
	if err == nil {
		n.emit(ctx, Payments, OpUpdate, id)
	}
	return out, err
}

// DeletePaymentsByStudent also reports the cascaded transactions.
func (n *Notifying) DeletePaymentsByStudent(ctx context.Context, studentID string) (int, error) {
	count, err := n.Store.DeletePaymentsByStudent(ctx, studentID)
	if err == nil && count > 0 {
		n.emit(ctx, Payments, OpDelete, "")
		n.emit(ctx, Transactions, OpDelete, "")
	}
	return count, err
}

func (n *Notifying) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	out, err := n.Store.CreateTransaction(ctx, t)
	if err == nil {
		n.emit(ctx, Transactions, OpInsert, out.ID)
	}
	return out, err
}
