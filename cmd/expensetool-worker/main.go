package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"expensetool/internal/amqp"
	"expensetool/internal/backend"
	"expensetool/internal/cli"
	"expensetool/internal/config"
	applog "expensetool/internal/log"
	gsheet "expensetool/internal/sheets/google"
	"expensetool/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting expensetool-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	mirror, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets mirror", "error", err)
		os.Exit(1)
	}
	w := worker.NewMirrorWorker(mirror)

	// A memory store lives in the server process only, so there is nothing to backfill from.
	if cfg.MirrorBackfill && cfg.DataBackend != config.BackendMemory {
		backfill(ctx, logger, cfg, w)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	logger.Info("Consuming expense events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeEvents(ctx, w.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

func backfill(ctx context.Context, logger *slog.Logger, cfg *config.Config, w *worker.MirrorWorker) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Skipping backfill", "error", err)
		return
	}
	store, err := backend.NewFactory(logger).CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Skipping backfill, store unavailable", "error", err)
		return
	}
	defer store.Close()

	n, err := w.Backfill(ctx, store, cfg.UserID)
	if err != nil {
		logger.Error("Backfill incomplete", "error", err, "mirrored", n)
		return
	}
	logger.Info("Backfill finished", "mirrored", n)
}
