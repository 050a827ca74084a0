package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MagnunAVF/affiliate-tracker/internal/cache"
	"github.com/MagnunAVF/affiliate-tracker/internal/config"
	"github.com/MagnunAVF/affiliate-tracker/internal/httpapi"
	"github.com/MagnunAVF/affiliate-tracker/internal/idgen"
	applog "github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/postback"
	"github.com/MagnunAVF/affiliate-tracker/internal/queue"
	"github.com/MagnunAVF/affiliate-tracker/internal/store"
	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

const shutdownTimeout = 15 * time.Second

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
	slog.Info("Running GORM auto-migration")
	if err := store.Migrate(db); err != nil {
		slog.Error("Failed to auto-migrate database", "err", err)
		os.Exit(1)
	}
	st := store.New(db)

	// The cache is optional; without REDIS_ADDR every resolve hits the database.
	var slugCache tracking.SlugCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("Unable to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		slugCache = cache.NewSlugCache(rdb, cfg.SlugCacheTTL)
	} else {
		slog.Warn("REDIS_ADDR not set, slug cache disabled")
	}

	var clicks tracking.ClickLogger
	switch cfg.ClickSink {
	case config.ClickSinkAMQP:
		conn, ch, err := queue.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.ClickQueue)
		if err != nil {
			slog.Error("Unable to set up click queue", "err", err)
			os.Exit(1)
		}
		defer conn.Close()
		defer ch.Close()
		clicks = tracking.NewQueueClickLogger(queue.NewPublisher(ch, cfg.RabbitMQ.ClickQueue), cfg.IPHashSalt)
	default:
		clicks = tracking.NewStoreClickLogger(st, cfg.IPHashSalt)
	}
	slog.Info("Click sink selected", "sink", cfg.ClickSink)

	ids, err := idgen.New(cfg.NodeID)
	if err != nil {
		slog.Error("Invalid NODE_ID", "err", err)
		os.Exit(1)
	}

	validate := tracking.NewValidator()
	detacher := tracking.NewDetacher(cfg.DetachedTaskTimeout)
	resolver := tracking.NewResolver(st, slugCache)

	app := httpapi.NewRouter(httpapi.Dependencies{
		Dispatcher: tracking.NewDispatcher(resolver, clicks, detacher, ids),
		Postbacks:  tracking.NewPostbackIngestor(cfg.PostbackSecrets, postback.NewRegistry(cfg.DefaultCurrency), st),
		Events:     tracking.NewEventRecorder(st, validate, cfg.IPHashSalt, cfg.EventsMaxBatch),
		Slugs:      tracking.NewSlugAdmin(st, slugCache, ids, validate),
		Analytics:  st,
		AdminToken: cfg.AdminToken,
	})
	if len(cfg.PostbackSecrets) == 0 {
		slog.Warn("POSTBACK_SECRETS is empty, every postback will be rejected")
	}
	if cfg.AdminToken == "" {
		slog.Warn("ADMIN_TOKEN is empty, admin API disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API service", "addr", cfg.Port)
		errCh <- app.Listen(cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("API service stopped", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	slog.Info("Shutting down API service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "err", err)
	}
	if err := detacher.Wait(shutdownCtx); err != nil {
		slog.Warn("Detached click tasks still running at shutdown", "err", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	slog.Info("API service stopped")
}
