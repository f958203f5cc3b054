// Package store defines the persistence ports for students, payments and
// transactions, and the decorator that turns mutations into change events.
package store

import (
	"context"
	"time"

	"kaskelas/internal/core"
)

// Collection names a persisted entity set.
type Collection string

const (
	Students     Collection = "students"
	Payments     Collection = "payments"
	Transactions Collection = "transactions"
)

// Collections lists every collection in a stable order.
func Collections() []Collection {
	return []Collection{Students, Payments, Transactions}
}

// Op is the kind of mutation carried by a Change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change reports that a collection was mutated. It carries no row data;
// listeners refetch what they need.
type Change struct {
	Collection Collection
	Op         Op
	ID         string
	At         time.Time
}

// Notifier receives a Change after every successful mutation.
type Notifier interface {
	Notify(ctx context.Context, c Change)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, c Change)

func (f NotifierFunc) Notify(ctx context.Context, c Change) { f(ctx, c) }

type (
	StudentStore interface {
		ListStudents(ctx context.Context) ([]core.Student, error)
		GetStudent(ctx context.Context, id string) (core.Student, error)
		CreateStudent(ctx context.Context, s core.Student) (core.Student, error)
		UpdateStudent(ctx context.Context, s core.Student) (core.Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	PaymentStore interface {
		ListPayments(ctx context.Context) ([]core.Payment, error)
		GetPayment(ctx context.Context, id string) (core.Payment, error)
		CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
		// UpdatePaymentStatus overwrites status and verifier unconditionally.
		UpdatePaymentStatus(ctx context.Context, id string, status core.PaymentStatus, verifier string) (core.Payment, error)
		DeletePaymentsByStudent(ctx context.Context, studentID string) (int, error)
	}

	TransactionStore interface {
		// ListTransactions returns every transaction, newest date first.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// FindTransactionByPayment returns the transaction posted for a payment,
		// or a NotFoundError.
		FindTransactionByPayment(ctx context.Context, paymentID string) (core.Transaction, error)
	}

	// Store is the full persistence surface of the app.
	Store interface {
		StudentStore
		PaymentStore
		TransactionStore
		Close() error
	}
)
