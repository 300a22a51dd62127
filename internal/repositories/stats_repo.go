package repositories

import (
	"context"
	"time"

	"github.com/fantics-casino/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) Collect(ctx context.Context) (*models.Stats, error) {
	s := &models.Stats{GeneratedAt: time.Now().UTC()}

	err := r.pool.QueryRow(ctx, `
		SELECT count(*), COALESCE(SUM(fantics), 0)::bigint FROM users
	`).Scan(&s.Users, &s.TotalFantics)
	if err != nil {
		return nil, err
	}

	if s.PaymentsByStatus, err = r.grouped(ctx, `
		SELECT status, count(*), COALESCE(SUM(amount_fantics), 0)::bigint
		FROM pending_payments GROUP BY status
	`); err != nil {
		return nil, err
	}

	// by method counts only credited payments
	if s.PaymentsByMethod, err = r.grouped(ctx, `
		SELECT payment_method, count(*), COALESCE(SUM(amount_fantics), 0)::bigint
		FROM successful_payments GROUP BY payment_method
	`); err != nil {
		return nil, err
	}

	if s.WithdrawalsByStatus, err = r.grouped(ctx, `
		SELECT status, count(*), COALESCE(SUM(amount_fantics), 0)::bigint
		FROM withdrawal_requests GROUP BY status
	`); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *StatsRepo) grouped(ctx context.Context, sql string) (map[string]models.StatusTotal, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.StatusTotal)
	for rows.Next() {
		var key string
		var t models.StatusTotal
		if err := rows.Scan(&key, &t.Count, &t.AmountFantics); err != nil {
			return nil, err
		}
		out[key] = t
	}
	return out, rows.Err()
}
