package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/cashbook"
	"cashbook/internal/cli"
	"cashbook/internal/config"
	apphttp "cashbook/internal/http"
	"cashbook/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	store, closeStore := cli.OpenStore(context.Background(), logger, cfg, cfg.DataBackend)

	opts := []cashbook.Option{cashbook.WithLogger(logger)}

	// Change events are optional: without a broker the book runs standalone.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, change events disabled", log.FieldError, err)
		} else {
			amqpClient = c
			opts = append(opts, cashbook.WithNotifier(amqpClient))
		}
	}

	book := cashbook.New(store, opts...)
	book.Load(context.Background())

	srv := apphttp.NewServer(":"+cfg.Port, book,
		apphttp.WithLabels(cli.ReportLabels(cfg)),
		apphttp.WithLogger(logger),
	)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		closeStore()
	})

	logger.Info("Starting cashbook server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"change_events", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
