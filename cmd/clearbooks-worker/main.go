package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"clearbooks/internal/amqp"
	"clearbooks/internal/config"
	"clearbooks/internal/export"
	gsheet "clearbooks/internal/export/google"
	mem "clearbooks/internal/export/memory"
	"clearbooks/internal/log"
	"clearbooks/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting clearbooks-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ledger destination: Google Sheets when configured, otherwise an
	// in-memory sink so local runs still drain the pending queue.
	var writer export.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets ledger initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleLedgerSheet)
	} else {
		writer = mem.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID configured, exporting to in-memory ledger")
	}

	// AMQP is optional here too: without it the worker relies solely on
	// the periodic sweep of pending rows.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic sweep only", log.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	worker := export.NewWorker(repo, writer, amqpClient, export.WorkerConfig{
		BatchSize:     cfg.ExportBatchSize,
		SweepInterval: cfg.ExportInterval,
	})

	logger.Info("Export worker running",
		"batch_size", cfg.ExportBatchSize,
		"sweep_interval", cfg.ExportInterval.String(),
		"amqp_enabled", amqpClient != nil)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Export worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Export worker stopped gracefully")
}
