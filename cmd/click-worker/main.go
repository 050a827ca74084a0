package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MagnunAVF/affiliate-tracker/internal/config"
	applog "github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/queue"
	"github.com/MagnunAVF/affiliate-tracker/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}
	applog.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.Database.Driver, cfg.Database.URL, applog.NewGormLogger(cfg.Database.LogLevel, cfg.Database.SlowLog))
	if err != nil {
		slog.Error("Unable to connect to database", "err", err)
		os.Exit(1)
	}

	conn, ch, err := queue.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.ClickQueue)
	if err != nil {
		slog.Error("Unable to set up click queue", "err", err)
		os.Exit(1)
	}
	defer conn.Close()
	defer ch.Close()

	// Prefetch one batch worth of messages.
	if err := ch.Qos(cfg.ClickBatchSize, 0, false); err != nil {
		slog.Error("Failed to set QoS", "err", err)
		os.Exit(1)
	}

	msgs, err := ch.Consume(
		cfg.RabbitMQ.ClickQueue, "", false, false, false, false, nil,
	)
	if err != nil {
		slog.Error("Failed to register consumer", "err", err)
		os.Exit(1)
	}

	slog.Info("Click worker started, waiting for click events",
		"queue", cfg.RabbitMQ.ClickQueue,
		"batch_size", cfg.ClickBatchSize,
		"flush_interval", cfg.ClickFlushInterval.String(),
	)

	consumer := queue.NewConsumer(store.New(db), cfg.ClickBatchSize, cfg.ClickFlushInterval)
	consumer.Run(ctx, msgs)

	slog.Info("Click worker stopped")
}
