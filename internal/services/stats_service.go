package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fantics-casino/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const statsSnapshotKey = "stats:snapshot"

// StatsService serves the admin statistics from a Redis snapshot that cmd/stats refreshes.
type StatsService struct {
	stats StatsStore
	rdb   *redis.Client
	log   *zap.Logger
}

func NewStatsService(stats StatsStore, rdb *redis.Client, log *zap.Logger) *StatsService {
	return &StatsService{stats: stats, rdb: rdb, log: log}
}

// Snapshot returns the cached snapshot, computing a live one when there is none.
func (s *StatsService) Snapshot(ctx context.Context) (*models.Stats, error) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, statsSnapshotKey).Bytes()
		switch {
		case err == nil:
			var st models.Stats
			if err := json.Unmarshal(data, &st); err == nil {
				return &st, nil
			}
			s.log.Warn("corrupt stats snapshot, recomputing")
		case !errors.Is(err, redis.Nil):
			s.log.Warn("stats cache unavailable", zap.Error(err))
		}
	}
	return s.stats.Collect(ctx)
}

// Refresh recomputes the snapshot and stores it in Redis.
func (s *StatsService) Refresh(ctx context.Context) (*models.Stats, error) {
	st, err := s.stats.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}
	if s.rdb == nil {
		return st, nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, statsSnapshotKey, data, 0).Err(); err != nil {
		return nil, fmt.Errorf("store stats snapshot: %w", err)
	}
	return st, nil
}
