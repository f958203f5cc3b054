package backend

import (
	"errors"
	"fmt"

	"kaskelas/internal/config"
)

// BackendType names where the ledger lives.
type BackendType string

const (
	// SQLiteBackend is the durable store shared by the server and the worker.
	SQLiteBackend BackendType = "sqlite"
	// MemoryBackend keeps everything in process, seeded from JSON files.
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}

// Config selects the store and the optional change broker.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	SeedDir      string

	// Changes are also published here when AMQPURL is set.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig picks the backend settings out of the process config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:         BackendType(app.DataBackend),
		SQLiteDBPath: app.SQLiteDBPath,
		SeedDir:      app.SeedDir,
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
		AMQPQueue:    app.AMQPQueue,
	}
	if !cfg.Type.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", app.DataBackend)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case !c.Type.IsValid():
		return fmt.Errorf("invalid backend type: %s", c.Type)
	case c.Type == SQLiteBackend && c.SQLiteDBPath == "":
		return errors.New("SQLite database path is required for sqlite backend")
	case c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == ""):
		return errors.New("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}
