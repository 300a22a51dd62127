package db

import (
	"context"
	"time"

	"github.com/fantics-casino/backend/internal/retry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var connectPolicy = retry.Policy{Attempts: 5, Base: 500 * time.Millisecond}

func NewPostgresPool(ctx context.Context, dsn string, log *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	err = retry.Do(ctx, connectPolicy, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			log.Warn("postgres ping failed", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("postgres pool created", zap.Int32("max_conns", cfg.MaxConns))
	return pool, nil
}
