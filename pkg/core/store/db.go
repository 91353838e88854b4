package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"smme_finmodel/pkg/core/config"
	"smme_finmodel/pkg/core/logger"
)

// OpenPool creates a pgx connection pool from a Postgres URL and checks it
// is reachable.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn not set (DATABASE_URL)")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

// Open builds the configured backend, wrapped with operation logging.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (ModelStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	var (
		s   ModelStore
		err error
	)
	switch cfg.Backend {
	case config.BackendMemory, "":
		s = NewMemoryStore()
	case config.BackendFile:
		s, err = NewFileStore(cfg.Dir)
	case config.BackendSQLite:
		s, err = NewSQLiteStore(ctx, cfg.DSN)
	case config.BackendPostgres:
		s, err = NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend '%s'", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	log.Info("model store ready", zap.String("backend", cfg.Backend))
	return WithLogging(s, log), nil
}
