package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/fantics-casino/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Upsert binds the address to the user, reactivating a soft-deactivated binding.
// An address bound to a different user is ErrDuplicate.
func (r *WalletRepo) Upsert(ctx context.Context, w *models.TonWallet) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO ton_wallets (user_id, wallet_address, network, public_key, is_active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (wallet_address) DO UPDATE SET
			network = COALESCE(EXCLUDED.network, ton_wallets.network),
			public_key = COALESCE(EXCLUDED.public_key, ton_wallets.public_key),
			is_active = true,
			updated_at = now()
		WHERE ton_wallets.user_id = EXCLUDED.user_id
		RETURNING id, is_active, created_at, updated_at
	`, w.UserID, w.WalletAddress, w.Network, w.PublicKey).Scan(&w.ID, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		// the WHERE on the conflict update filtered the row out: another owner
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("wallet %s: %w", w.WalletAddress, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *WalletRepo) GetByAddress(ctx context.Context, addr string) (*models.TonWallet, error) {
	var w models.TonWallet
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, wallet_address, network, public_key, is_active, created_at, updated_at
		FROM ton_wallets WHERE wallet_address = $1
	`, addr).Scan(&w.ID, &w.UserID, &w.WalletAddress, &w.Network, &w.PublicKey, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (r *WalletRepo) ListByUser(ctx context.Context, userID int64) ([]models.TonWallet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, wallet_address, network, public_key, is_active, created_at, updated_at
		FROM ton_wallets WHERE user_id = $1 AND is_active = true
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TonWallet
	for rows.Next() {
		var w models.TonWallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.WalletAddress, &w.Network, &w.PublicKey, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WalletRepo) Deactivate(ctx context.Context, userID int64, addr string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ton_wallets SET is_active = false, updated_at = now()
		WHERE wallet_address = $1 AND user_id = $2 AND is_active = true
	`, addr, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
