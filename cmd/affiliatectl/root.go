package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/MagnunAVF/affiliate-tracker/internal/cache"
	"github.com/MagnunAVF/affiliate-tracker/internal/config"
	"github.com/MagnunAVF/affiliate-tracker/internal/idgen"
	applog "github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/store"
	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

// env is what every subcommand needs, built once before the command runs.
type env struct {
	cfg     *config.Config
	db      *gorm.DB
	store   *store.Store
	cache   tracking.SlugCache
	cleanup []func()
}

func (e *env) slugAdmin() (*tracking.SlugAdmin, error) {
	ids, err := idgen.New(e.cfg.NodeID)
	if err != nil {
		return nil, err
	}
	return tracking.NewSlugAdmin(e.store, e.cache, ids, tracking.NewValidator()), nil
}

func (e *env) close() {
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "affiliatectl",
		Short:         "Operator tool for the affiliate tracker",
		Long:          "affiliatectl runs database migrations and manages referral slugs against the configured database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open(cmd.Context())
		},
	}

	root.AddCommand(newMigrateCmd(e), newSlugCmd(e))
	return root
}

func (e *env) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applog.Init(cfg.Log)
	e.cfg = cfg

	db, err := store.Open(cfg.Database.Driver, cfg.Database.URL, applog.NewGormLogger(cfg.Database.LogLevel, cfg.Database.SlowLog))
	if err != nil {
		return err
	}
	e.db = db
	e.store = store.New(db)
	e.cleanup = append(e.cleanup, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	// Slug changes must evict the redirect cache, otherwise a deactivated
	// slug keeps resolving until its TTL runs out.
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Warn("Redis unavailable, cached slugs will expire on their own", "err", err)
			return nil
		}
		e.cache = cache.NewSlugCache(rdb, cfg.SlugCacheTTL)
		e.cleanup = append(e.cleanup, func() { rdb.Close() })
	}
	return nil
}
