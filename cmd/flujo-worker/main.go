package main

import (
	"context"
	"errors"
	"os"
	"time"

	"flujo/internal/amqp"
	"flujo/internal/backend"
	"flujo/internal/cli"
	"flujo/internal/log"
	ports "flujo/internal/sheets"
	gsheet "flujo/internal/sheets/google"
	mem "flujo/internal/sheets/memory"
	"flujo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, log.ComponentWorker)
	logger.Info("Starting flujo-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	mapping, err := cfg.Mapping()
	if err != nil {
		logger.Error("Invalid field mapping", log.FieldError, err)
		os.Exit(1)
	}

	// The worker only reads snapshots; it consumes changes on its own
	// connection below.
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if backendConfig.Type != backend.SQLiteBackend {
		logger.Warn("Memory snapshots are not shared with the server, mirrors will be empty", "backend", backendConfig.Type)
	}
	backendConfig.AMQPURL = ""
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err)
		os.Exit(1)
	}

	var writer ports.MirrorWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = mem.New(nil)
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	mirror := worker.NewMirrorWorker(res.Snapshots, writer, cfg.GoogleMirrorSheet, mapping, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	go func() {
		err := amqpClient.ConsumeDatasetChanged(ctx, mirror.HandleDatasetChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()
	go mirror.Run(ctx, cfg.MirrorInterval)

	logger.Info("Worker running",
		"sheet", cfg.GoogleMirrorSheet,
		"interval", cfg.MirrorInterval.String(),
		"queue", cfg.AMQPQueue)

	cli.WaitForShutdown(ctx, done)
	if err := amqpClient.Close(); err != nil {
		logger.Error("AMQP close error", log.FieldError, err)
	}
	if err := res.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", log.FieldError, err)
	}
	logger.Info("Worker stopped")
}
