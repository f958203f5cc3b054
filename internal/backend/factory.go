package backend

import (
	"context"
	"fmt"
	"log/slog"

	"kaskelas/internal/amqp"
	"kaskelas/internal/notify"
	"kaskelas/internal/storage"
	"kaskelas/internal/store"
	"kaskelas/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		base  store.Store
		ready func(context.Context) error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		base, ready = repo, repo.Ping
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		dir := config.SeedDir
		if dir == "" {
			dir = "data"
		}
		mem, err := memory.NewFromFiles(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		base, ready = mem, func(context.Context) error { return nil }
		f.logger.Info("Initialized memory backend", "seed_dir", dir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	hub := notify.NewHub()
	notifiers := notify.Multi{hub}

	// The broker is optional; without it only in-process listeners see changes.
	var publisher *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change publishing", "error", err)
		} else {
			publisher = client
			notifiers = append(notifiers, client)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Store: store.NewNotifying(base, notifiers),
		Hub:   hub,
		Ready: ready,
		Cleanup: func() error {
			hub.Close()
			if publisher != nil {
				publisher.Close()
			}
			return base.Close()
		},
	}, nil
}
