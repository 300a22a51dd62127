package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/fantics-casino/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, user_id, amount_fantics, amount_nano, fee_nano, destination_address, status,
	transaction_hash, error_message, created_at, processed_at`

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(&w.ID, &w.UserID, &w.AmountFantics, &w.AmountNano, &w.FeeNano, &w.DestinationAddress, &w.Status,
		&w.TransactionHash, &w.ErrorMessage, &w.CreatedAt, &w.ProcessedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *models.WithdrawalRequest) error {
	return on(r.pool, tx).QueryRow(ctx, `
		INSERT INTO withdrawal_requests (user_id, amount_fantics, amount_nano, fee_nano, destination_address, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, w.UserID, w.AmountFantics, w.AmountNano, w.FeeNano, w.DestinationAddress, w.Status,
	).Scan(&w.ID, &w.CreatedAt)
}

// SumSince totals the user's withdrawals that count toward the daily limit.
func (r *WithdrawalRepo) SumSince(ctx context.Context, tx pgx.Tx, userID int64, since time.Time) (int64, error) {
	var sum int64
	err := on(r.pool, tx).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_fantics), 0)::bigint FROM withdrawal_requests
		WHERE user_id = $1 AND created_at >= $2 AND status = ANY($3)
	`, userID, since, []string{
		models.WithdrawalStatusPending, models.WithdrawalStatusProcessing, models.WithdrawalStatusCompleted,
	}).Scan(&sum)
	return sum, err
}

func (r *WithdrawalRepo) Get(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	return scanWithdrawal(r.pool.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id))
}

func (r *WithdrawalRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawal_requests
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWithdrawals(rows)
}

// ClaimPending moves up to limit of the oldest pending requests to processing and returns them.
// SKIP LOCKED lets several workers run side by side.
func (r *WithdrawalRepo) ClaimPending(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		UPDATE withdrawal_requests SET status = $1
		WHERE id IN (
			SELECT id FROM withdrawal_requests
			WHERE status = $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+withdrawalColumns,
		models.WithdrawalStatusProcessing, models.WithdrawalStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWithdrawals(rows)
}

// Transition moves a request from one status to another, stamping processed_at on terminal statuses.
func (r *WithdrawalRepo) Transition(ctx context.Context, tx pgx.Tx, id int64, from, to string, txHash, errMsg *string) error {
	if !models.IsValidWithdrawalTransition(from, to) {
		return fmt.Errorf("invalid withdrawal transition %s -> %s", from, to)
	}
	tag, err := on(r.pool, tx).Exec(ctx, `
		UPDATE withdrawal_requests SET
			status = $3,
			transaction_hash = COALESCE($4, transaction_hash),
			error_message = COALESCE($5, error_message),
			processed_at = CASE WHEN $3 IN ('completed', 'failed', 'cancelled') THEN now() ELSE processed_at END
		WHERE id = $1 AND status = $2
	`, id, from, to, txHash, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func collectWithdrawals(rows pgx.Rows) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}
