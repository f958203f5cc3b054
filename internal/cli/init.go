// Package cli holds the bootstrap steps shared by cmd/kas and cmd/kas-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kaskelas/internal/backend"
	"kaskelas/internal/config"
	"kaskelas/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is ignored.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads the environment and config, then installs the process
// logger for component. validate picks the per-process config checks; the
// process exits when they fail.
func Bootstrap(component string, validate func(*config.Config) error) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := log.Setup(component, cfg.LogLevel, cfg.LogFormat)

	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenBackend builds the store selected by cfg, exiting on failure.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Shutdown runs each step with a shared deadline and logs failures.
func Shutdown(logger *log.Logger, timeout time.Duration, steps ...func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, step := range steps {
		if err := step(ctx); err != nil {
			logger.Error("Shutdown step failed", log.FieldError, err)
		}
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached")
		return
	}
	logger.Info("Shutdown complete")
}
