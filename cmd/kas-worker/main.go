package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kaskelas/internal/amqp"
	"kaskelas/internal/cli"
	"kaskelas/internal/config"
	"kaskelas/internal/log"
	"kaskelas/internal/sheets"
	gsheet "kaskelas/internal/sheets/google"
	sheetmem "kaskelas/internal/sheets/memory"
	"kaskelas/internal/storage"
	"kaskelas/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("kas-worker", (*config.Config).ValidateWorker)
	logger.Info("Starting kas-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var writer sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets mirror enabled", "sheet", cfg.GoogleSheetName)
	} else {
		writer = sheetmem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
	}

	broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer broker.Close()

	mirror := worker.NewLedgerMirror(repo, writer, cfg.MirrorInterval, logger)

	// Start reconciles right away, catching up on anything written while
	// the worker was down.
	if err := mirror.Start(ctx); err != nil {
		logger.Error("Failed to start ledger mirror", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return broker.ConsumeChanges(gctx, mirror.HandleChange)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Change consumption failed", log.FieldError, err)
	}

	cli.Shutdown(logger, 30*time.Second, mirror.Stop)
}
