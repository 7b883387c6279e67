// Package cli provides common CLI initialization utilities shared by
// cmd/cashbook and cmd/cashbook-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashbook/internal/backend"
	"cashbook/internal/config"
	"cashbook/internal/kv"
	"cashbook/internal/log"
	"cashbook/internal/report"

	"github.com/joho/godotenv"
)

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		cfg.Format = f
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and checks it with validate,
// usually (*config.Config).Validate or ValidateWorker.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed",
			log.NewFields().WithOperation(log.OpStartup).WithError(err, log.ErrorTypeValidation).ToSlice()...)
		os.Exit(1)
	}
	return cfg
}

// OpenStore builds the store named by backendName.
// Exits the process on failure. The returned cleanup is never nil.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config, backendName string) (kv.Store, func()) {
	storeCfg, err := backend.FromAppConfig(cfg, backendName)
	if err != nil {
		logger.Error("Invalid backend configuration", "backend", backendName, log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateStore(ctx, storeCfg)
	if err != nil {
		logger.Error("Failed to initialize store", "backend", backendName, log.FieldError, err)
		os.Exit(1)
	}
	cleanup := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close store", "backend", backendName, log.FieldError, err)
		}
	}
	return res.Store, cleanup
}

// ReportLabels returns the configured CSV type labels, falling back to
// report.DefaultLabels for any label left unset.
func ReportLabels(cfg *config.Config) report.Labels {
	labels := report.DefaultLabels
	if cfg.ReportIncomeLabel != "" {
		labels.Income = cfg.ReportIncomeLabel
	}
	if cfg.ReportExpenseLabel != "" {
		labels.Expense = cfg.ReportExpenseLabel
	}
	return labels
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has run.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
