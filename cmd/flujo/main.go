package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"flujo/internal/backend"
	"flujo/internal/cache"
	"flujo/internal/cli"
	"flujo/internal/dashboard"
	apphttp "flujo/internal/http"
	"flujo/internal/log"
	ports "flujo/internal/sheets"
	gsheet "flujo/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	mapping, err := cfg.Mapping()
	if err != nil {
		logger.Error("Invalid field mapping", log.FieldError, err)
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", backendConfig.Type)
		os.Exit(1)
	}

	opts := dashboard.DefaultOptions()
	opts.Types = cfg.Types()
	opts.ParetoThreshold = cfg.Threshold()
	if opts.Axis, err = cfg.Axis(); err != nil {
		logger.Error("Invalid period axis", log.FieldError, err)
		os.Exit(1)
	}

	svc := dashboard.NewService(dashboard.ServiceConfig{
		Options:       opts,
		Mapping:       mapping,
		Snapshots:     res.Snapshots,
		Notifier:      res.Notifier,
		Logger:        logger,
		CacheSize:     cfg.ReportCacheSize,
		CacheTTL:      cfg.ReportCacheTTL,
		AutosaveDelay: cfg.AutosaveDelay,
	})
	if err := svc.Restore(context.Background()); err != nil {
		logger.Warn("Starting with an empty dataset", log.FieldError, err)
	}

	caches := cache.NewManager(logger.Logger)
	caches.Register(svc.Reports())
	caches.StartCleanup(cfg.ReportCacheTTL)

	var rows ports.RowReader
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		rows = client
		logger.Info("Google Sheets import enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Sheets:         rows,
		ImportRange:    cfg.GoogleImportRange,
		RateLimitRPM:   cfg.RateLimitRPM,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		// Close flushes a pending autosave before the store goes away.
		svc.Close()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting flujo server", "port", cfg.Port, "backend", backendConfig.Type, "mapping", mapping.Name)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
