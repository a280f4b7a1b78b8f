package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"perfcycle/internal/platform/config"
	"perfcycle/internal/platform/db"
	"perfcycle/internal/platform/logger"
)

type dbDeps struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// withDB loads config, opens the pool and runs fn. Only DATABASE_URL is
// required here; the HTTP settings are not validated.
func withDB(ctx context.Context, fn func(context.Context, config.Config, dbDeps) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, cfg, dbDeps{pool: pool, log: log})
}
