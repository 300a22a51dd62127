package repositories

import (
	"context"

	"github.com/fantics-casino/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Upsert creates the user with a zero balance or refreshes the username. The balance is never touched here.
func (r *UserRepo) Upsert(ctx context.Context, userID int64, username *string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, username)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, users.username)
		RETURNING user_id, username, fantics, created_at
	`, userID, username).Scan(&u.UserID, &u.Username, &u.Fantics, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Get(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, username, fantics, created_at
		FROM users WHERE user_id = $1
	`, userID).Scan(&u.UserID, &u.Username, &u.Fantics, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
