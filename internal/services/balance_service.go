package services

import (
	"context"
	"errors"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/ledger"
	"github.com/fantics-casino/backend/internal/models"
	"github.com/fantics-casino/backend/internal/repositories"
	"go.uber.org/zap"
)

type BalanceChange struct {
	UserID     int64  `json:"user_id"`
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"new_balance"`
	Message    string `json:"message"`
}

type BalanceService struct {
	users     UserStore
	ledger    ledger.Store
	coord     *Coordinator
	audit     AuditStore
	pub       events.Publisher
	manualMax int64
	log       *zap.Logger
}

func NewBalanceService(
	users UserStore,
	store ledger.Store,
	coord *Coordinator,
	audit AuditStore,
	pub events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *BalanceService {
	return &BalanceService{
		users:     users,
		ledger:    store,
		coord:     coord,
		audit:     audit,
		pub:       pub,
		manualMax: cfg.ManualAddMax,
		log:       log,
	}
}

// EnsureUser creates the user on first contact and refreshes the username afterwards.
func (s *BalanceService) EnsureUser(ctx context.Context, userID int64, username *string) (*models.User, error) {
	if userID <= 0 {
		return nil, reject(KindInvalid, "invalid user id")
	}
	return s.users.Upsert(ctx, userID, username)
}

func (s *BalanceService) Me(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, reject(KindNotFound, "user %d not found", userID)
	}
	return u, err
}

func (s *BalanceService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if errors.Is(err, ledger.ErrUserNotFound) {
		return 0, reject(KindNotFound, "user %d not found", userID)
	}
	return balance, err
}

// ManualCredit lets a user top up their own balance by a bounded amount.
// Crediting anyone else is refused whatever the amount.
func (s *BalanceService) ManualCredit(ctx context.Context, targetID, amount, initiatorID int64) (*BalanceChange, error) {
	if initiatorID != targetID {
		s.log.Warn("manual credit for another user refused",
			zap.Int64("initiator_id", initiatorID),
			zap.Int64("target_id", targetID),
		)
		return nil, reject(KindForbidden, "you can only add fantics to your own balance")
	}
	if amount <= 0 {
		return nil, reject(KindInvalid, "amount must be positive")
	}
	if amount > s.manualMax {
		return nil, reject(KindInvalid, "amount exceeds the maximum of %d", s.manualMax)
	}

	res, err := s.coord.Credit(ctx, targetID, amount)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, res.Rejection()
	}

	writeAudit(ctx, s.audit, s.log, models.AuditLog{
		ActorUserID: &initiatorID,
		ActorType:   "user",
		Action:      "manual_credit",
		EntityType:  "user",
		EntityID:    idString(targetID),
		Meta:        map[string]any{"amount": amount, "balance": res.Balance},
	})
	publishLedger(ctx, s.pub, s.log, events.EventBalanceChanged, targetID, map[string]any{
		"delta":   amount,
		"balance": res.Balance,
		"reason":  "manual_credit",
	})

	return &BalanceChange{UserID: targetID, Amount: amount, NewBalance: res.Balance, Message: res.Message}, nil
}

// AdminSetBalance overwrites a user's balance; negative values become zero.
func (s *BalanceService) AdminSetBalance(ctx context.Context, adminID, userID, amount int64) (*BalanceChange, error) {
	res, err := s.coord.SetBalance(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, res.Rejection()
	}

	writeAudit(ctx, s.audit, s.log, models.AuditLog{
		ActorUserID: &adminID,
		ActorType:   "admin",
		Action:      "balance_set",
		EntityType:  "user",
		EntityID:    idString(userID),
		Meta:        map[string]any{"requested": amount, "balance": res.Balance},
	})
	publishLedger(ctx, s.pub, s.log, events.EventBalanceChanged, userID, map[string]any{
		"balance": res.Balance,
		"reason":  "admin_set",
	})
	s.log.Info("balance set by admin", zap.Int64("admin_id", adminID), zap.Int64("user_id", userID), zap.Int64("balance", res.Balance))

	return &BalanceChange{UserID: userID, Amount: res.Balance, NewBalance: res.Balance, Message: res.Message}, nil
}
