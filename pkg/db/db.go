// Package db manages the PostgreSQL connection pool and schema migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/SmokyRM/snt-ulybka-sub005/pkg/config"
)

// DB wraps the pgx connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pgx pool against the configured database and verifies it.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database),
	)

	return &DB{Pool: pool, logger: logger}, nil
}

// Migrate applies pending goose migrations from the given directory.
func (d *DB) Migrate(dir string) error {
	sqlDB := stdlib.OpenDBFromPool(d.Pool)
	defer func(sqlDB *sql.DB) {
		if err := sqlDB.Close(); err != nil {
			d.logger.Warn("failed to close migration connection", slog.Any("error", err))
		}
	}(sqlDB)

	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	d.logger.Info("migrations applied", slog.String("dir", dir))
	return nil
}

// Close releases the pool.
func (d *DB) Close() {
	d.Pool.Close()
}
