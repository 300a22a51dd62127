package services

import (
	"context"
	"time"

	"github.com/fantics-casino/backend/internal/models"
	"github.com/jackc/pgx/v5"
)

// Storage the services depend on. The pgx repositories implement these; tests use in-memory fakes.
// Methods taking a pgx.Tx join the caller's ledger unit of work when tx is non-nil.

type UserStore interface {
	Upsert(ctx context.Context, userID int64, username *string) (*models.User, error)
	Get(ctx context.Context, userID int64) (*models.User, error)
}

type CaseStore interface {
	Get(ctx context.Context, id int64) (*models.Case, error)
	List(ctx context.Context) ([]models.Case, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, c *models.Case, prizes []models.PrizeSpec) error
	Update(ctx context.Context, id int64, name *string, cost *int64, prizes []models.PrizeSpec) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.PendingPayment) error
	Get(ctx context.Context, paymentID string) (*models.PendingPayment, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.PendingPayment, error)
	FindPendingByComment(ctx context.Context, comment string) (*models.PendingPayment, error)
	MarkStatus(ctx context.Context, paymentID, from, to string) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	TxHashUsed(ctx context.Context, txHash string) (bool, error)
	Claim(ctx context.Context, tx pgx.Tx, paymentID, txHash string, now time.Time) error
	RecordSuccess(ctx context.Context, tx pgx.Tx, sp *models.SuccessfulPayment) error
}

type WithdrawalStore interface {
	Create(ctx context.Context, tx pgx.Tx, w *models.WithdrawalRequest) error
	SumSince(ctx context.Context, tx pgx.Tx, userID int64, since time.Time) (int64, error)
	Get(ctx context.Context, id int64) (*models.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.WithdrawalRequest, error)
	ClaimPending(ctx context.Context, limit int) ([]models.WithdrawalRequest, error)
	Transition(ctx context.Context, tx pgx.Tx, id int64, from, to string, txHash, errMsg *string) error
}

type WalletStore interface {
	Upsert(ctx context.Context, w *models.TonWallet) error
	GetByAddress(ctx context.Context, addr string) (*models.TonWallet, error)
	ListByUser(ctx context.Context, userID int64) ([]models.TonWallet, error)
	Deactivate(ctx context.Context, userID int64, addr string) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

type StatsStore interface {
	Collect(ctx context.Context) (*models.Stats, error)
}

// Queue pushes JSON work items onto a named list.
type Queue interface {
	Push(ctx context.Context, queue string, v any) error
}
