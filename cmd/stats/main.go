package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/db"
	"github.com/fantics-casino/backend/internal/repositories"
	"github.com/fantics-casino/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	statsService := services.NewStatsService(repositories.NewStatsRepo(pool), rdb, log)

	log.Info("stats refresher started", zap.Duration("interval", cfg.StatsRefreshInterval))

	// Initial run
	refresh(ctx, statsService, log)

	ticker := time.NewTicker(cfg.StatsRefreshInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			refresh(ctx, statsService, log)
		case <-sigCh:
			log.Info("shutting down stats refresher")
			cancel()
			return
		}
	}
}

func refresh(ctx context.Context, stats *services.StatsService, log *zap.Logger) {
	start := time.Now()
	st, err := stats.Refresh(ctx)
	if err != nil {
		log.Error("stats refresh failed", zap.Error(err))
		return
	}
	log.Info("stats snapshot refreshed",
		zap.Int64("users", st.Users),
		zap.Duration("took", time.Since(start)),
	)
}
