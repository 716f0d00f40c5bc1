// Package cli holds the start-up and shutdown steps shared by the flujo
// binaries.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"flujo/internal/config"
	"flujo/internal/log"
)

// SetupLogger builds a text logger at LOG_LEVEL writing to w and installs
// it as the slog default. An unknown level falls back to info.
func SetupLogger(w io.Writer, component string) *log.Logger {
	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := log.NewWriter(w, level, component)
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid LOG_LEVEL, using info", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads .env files for local development. Missing files are
// ignored; variables already set win.
func LoadEnvFile(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadAndValidateConfig loads configuration and exits the process when it
// is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs before cancellation with timeout to finish; done closes after it.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		shutdown(logger, timeout, cleanup)
		cancel()
		close(done)
	}()

	return ctx, done
}

func shutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	finished := make(chan struct{})
	go func() {
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		close(finished)
	}()

	select {
	case <-finished:
		logger.Info("Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}

// WaitForShutdown blocks until the context is cancelled and cleanup ended.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
