package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/fantics-casino/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `payment_id, user_id, amount_fantics, amount_nano, payment_method, status,
	destination_address, comment, created_at, expires_at, confirmed_at, transaction_hash`

func scanPayment(row pgx.Row) (*models.PendingPayment, error) {
	var p models.PendingPayment
	err := row.Scan(&p.PaymentID, &p.UserID, &p.AmountFantics, &p.AmountNano, &p.PaymentMethod, &p.Status,
		&p.DestinationAddress, &p.Comment, &p.CreatedAt, &p.ExpiresAt, &p.ConfirmedAt, &p.TransactionHash)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PaymentRepo) Create(ctx context.Context, p *models.PendingPayment) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO pending_payments (payment_id, user_id, amount_fantics, amount_nano, payment_method, status,
			destination_address, comment, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, p.PaymentID, p.UserID, p.AmountFantics, p.AmountNano, p.PaymentMethod, p.Status,
		p.DestinationAddress, p.Comment, p.ExpiresAt,
	).Scan(&p.CreatedAt)
}

func (r *PaymentRepo) Get(ctx context.Context, paymentID string) (*models.PendingPayment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM pending_payments WHERE payment_id = $1`, paymentID))
}

func (r *PaymentRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.PendingPayment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM pending_payments
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PendingPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// FindPendingByComment returns the oldest pending TON payment carrying comment.
func (r *PaymentRepo) FindPendingByComment(ctx context.Context, comment string) (*models.PendingPayment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM pending_payments
		WHERE comment = $1 AND status = $2 AND payment_method = $3
		ORDER BY created_at ASC LIMIT 1
	`, comment, models.PaymentStatusPending, models.PaymentMethodTON))
}

// MarkStatus moves a payment from one status to another and reports whether it was still in from.
func (r *PaymentRepo) MarkStatus(ctx context.Context, paymentID, from, to string) (bool, error) {
	if !models.IsValidPaymentTransition(from, to) {
		return false, fmt.Errorf("invalid payment transition %s -> %s", from, to)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE pending_payments SET status = $3 WHERE payment_id = $1 AND status = $2
	`, paymentID, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PaymentRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pending_payments SET status = $1
		WHERE status = $2 AND expires_at < $3
	`, models.PaymentStatusExpired, models.PaymentStatusPending, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PaymentRepo) TxHashUsed(ctx context.Context, txHash string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM successful_payments WHERE transaction_hash = $1)
	`, txHash).Scan(&exists)
	return exists, err
}

// Claim moves the payment pending -> confirmed inside the caller's unit of work.
// It fails with ErrNotPending when another confirmation got there first.
func (r *PaymentRepo) Claim(ctx context.Context, tx pgx.Tx, paymentID, txHash string, now time.Time) error {
	tag, err := on(r.pool, tx).Exec(ctx, `
		UPDATE pending_payments
		SET status = $2, confirmed_at = $3, transaction_hash = $4
		WHERE payment_id = $1 AND status = $5
	`, paymentID, models.PaymentStatusConfirmed, now, txHash, models.PaymentStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *PaymentRepo) RecordSuccess(ctx context.Context, tx pgx.Tx, sp *models.SuccessfulPayment) error {
	err := on(r.pool, tx).QueryRow(ctx, `
		INSERT INTO successful_payments (user_id, payment_method, amount_fantics, amount_nano, sender_wallet,
			transaction_hash, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, sp.UserID, sp.PaymentMethod, sp.AmountFantics, sp.AmountNano, sp.SenderWallet, sp.TransactionHash, sp.PaymentID,
	).Scan(&sp.ID, &sp.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction hash: %w", ErrDuplicate)
	}
	return err
}
