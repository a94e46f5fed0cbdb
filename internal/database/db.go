package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB is the direct Postgres connection used when STORE_BACKEND=postgres.
// It implements store.Backend.
type DB struct {
	*pgxpool.Pool
	logger *zap.Logger
}

func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	logger.Info("connected to postgres", zap.String("database", pool.Config().ConnConfig.Database))
	return &DB{Pool: pool, logger: logger}, nil
}
