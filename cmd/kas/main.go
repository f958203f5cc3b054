package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kaskelas/internal/cache"
	"kaskelas/internal/cli"
	"kaskelas/internal/config"
	apphttp "kaskelas/internal/http"
	"kaskelas/internal/log"
	"kaskelas/internal/middleware/ratelimit"
	"kaskelas/internal/session"
	"kaskelas/internal/view"
)

func main() {
	cfg, logger := cli.Bootstrap("kas", (*config.Config).ValidateServer)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res := cli.OpenBackend(ctx, cfg, logger)

	views := view.NewController(res.Store, res.Hub, logger)
	if err := views.Start(ctx); err != nil {
		// The page shows a loading state until a later change reloads the data.
		logger.Error("Initial data load failed", log.FieldError, err)
	}

	creds, err := session.NewCredentials(cfg.AdminUser, cfg.AdminPasswordHash)
	if err != nil {
		logger.Error("Invalid admin credentials", log.FieldError, err)
		os.Exit(1)
	}
	policy := session.Policy{MaxAttempts: cfg.MaxLoginAttempts, Lockout: cfg.LockoutDuration}
	sessions := session.NewManager(creds, policy, cfg.SessionTTL, logger)

	caches := cache.NewManager(logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:          res.Store,
		View:           views,
		Sessions:       sessions,
		Policy:         policy,
		Caches:         caches,
		Ready:          res.Ready,
		Cohort:         cfg.CohortName,
		PublicBaseURL:  cfg.PublicBaseURL,
		TrustedProxies: cfg.TrustedProxies,
		RateLimit:      ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	caches.StartCleanup(5 * time.Minute)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting kas server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"cohort", cfg.CohortName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		}
	}

	cli.Shutdown(logger, 30*time.Second,
		srv.Shutdown,
		func(context.Context) error { views.Stop(); return nil },
		func(context.Context) error { caches.Stop(); return nil },
		func(context.Context) error { return res.Cleanup() },
	)
}
