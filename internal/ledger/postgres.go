package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore leases a user by locking the users row with SELECT ... FOR UPDATE
// inside a transaction that lives as long as the lease.
type PostgresStore struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, lockTimeout: lockTimeout}
}

func (s *PostgresStore) Acquire(ctx context.Context, userID int64) (*Lease, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ledger tx: %w", err)
	}

	if s.lockTimeout > 0 {
		// SET LOCAL does not accept bind parameters
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	var balance int64
	err = tx.QueryRow(ctx, `SELECT fantics FROM users WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}

	return newLease(userID, balance, &postgresUnit{pgTx: tx}), nil
}

func (s *PostgresStore) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, `SELECT fantics FROM users WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return balance, err
}

type postgresUnit struct {
	pgTx pgx.Tx
}

func (u *postgresUnit) write(ctx context.Context, userID, balance int64) error {
	tag, err := u.pgTx.Exec(ctx, `UPDATE users SET fantics = $1 WHERE user_id = $2`, balance, userID)
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("write balance: user %d: %w", userID, ErrUserNotFound)
	}
	return nil
}

func (u *postgresUnit) commit(ctx context.Context) error {
	return u.pgTx.Commit(ctx)
}

func (u *postgresUnit) rollback(ctx context.Context) error {
	err := u.pgTx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (u *postgresUnit) tx() pgx.Tx { return u.pgTx }
