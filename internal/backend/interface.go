// Package backend assembles the store the processes run on: the chosen
// database wrapped so every mutation reaches the in-process hub and, when
// configured, the AMQP exchange.
package backend

import (
	"context"

	"kaskelas/internal/notify"
	"kaskelas/internal/store"
)

// BackendResult is a ready-to-use store with change fan-out attached.
type BackendResult struct {
	Store store.Store
	Hub   *notify.Hub
	// Ready reports whether the underlying database answers.
	Ready func(ctx context.Context) error
	// Cleanup closes the hub, the broker connection and the database.
	Cleanup func() error
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
