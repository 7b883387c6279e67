package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/cli"
	"cashbook/internal/config"
	"cashbook/internal/log"
	"cashbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentWorker)
	logger.Info("Starting cashbook-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	primary, closePrimary := cli.OpenStore(context.Background(), logger, cfg, cfg.DataBackend)
	mirror, closeMirror := cli.OpenStore(context.Background(), logger, cfg, cfg.MirrorBackend)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		closeMirror()
		closePrimary()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		closeMirror()
		closePrimary()
	})

	w := worker.NewMirrorWorker(primary, mirror, logger)

	// Catch up on events published while the worker was down.
	if err := w.StartupSync(ctx); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeChanges(ctx, w.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Change consumption failed", log.FieldError, err)
		}
	}()

	// Periodic mirror covers dropped deliveries.
	go func() {
		ticker := time.NewTicker(cfg.MirrorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Mirror(ctx); err != nil {
					logger.Error("Periodic mirror failed", log.FieldError, err)
				}
			}
		}
	}()

	logger.Info("Worker started",
		"primary", cfg.DataBackend,
		"mirror", cfg.MirrorBackend,
		"interval", cfg.MirrorInterval)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
