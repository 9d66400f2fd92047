// Package backend opens the configured event store.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pawlog/internal/config"
	"pawlog/internal/logging"
	"pawlog/internal/storage"
	chstore "pawlog/internal/storage/clickhouse"
	"pawlog/internal/storage/memory"
	"pawlog/internal/storage/migrations"
	pgstore "pawlog/internal/storage/postgres"
	"pawlog/internal/storage/sqlite"
)

// Open connects to the backend named by cfg.Backend, applying migrations when
// cfg.Migrate is set. The returned cleanup closes the connection.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.EventStore, func(), error) {
	logger = logging.Component(logger, "storage")

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory store, events are lost on exit")
		return memory.NewEventStore(), func() {}, nil

	case config.BackendSQLite:
		return openSQLite(ctx, cfg, logger)

	case config.BackendPostgres:
		return openPostgres(ctx, cfg, logger)

	case config.BackendClickhouse:
		return openClickhouse(ctx, cfg, logger)

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func openSQLite(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.EventStore, func(), error) {
	if cfg.SQLitePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	logger.Info("connected", "backend", config.BackendSQLite, "path", cfg.SQLitePath)
	return sqlite.NewEventStore(db), func() { db.Close() }, nil
}

func openPostgres(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.EventStore, func(), error) {
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.MaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	logger.Info("connected", "backend", config.BackendPostgres)
	return pgstore.NewEventStore(pool), pool.Close, nil
}

func openClickhouse(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.EventStore, func(), error) {
	var (
		conn *chstore.Conn
		err  error
	)
	if cfg.Migrate {
		// Migrations create the database and return a connection to it.
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	logger.Info("connected", "backend", config.BackendClickhouse)
	return chstore.NewEventStore(conn), func() { conn.Close() }, nil
}
