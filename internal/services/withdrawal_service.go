package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/ledger"
	"github.com/fantics-casino/backend/internal/models"
	"github.com/fantics-casino/backend/internal/repositories"
	"github.com/fantics-casino/backend/internal/ton"
	"go.uber.org/zap"
)

const withdrawalWindow = 24 * time.Hour

// Sender pays out nanoTON to an external address and returns the transaction hash.
type Sender interface {
	Send(ctx context.Context, to string, amountNano int64, comment string) (string, error)
}

type WithdrawalInfo struct {
	Enabled        bool  `json:"enabled"`
	MinFantics     int64 `json:"min_fantics"`
	MaxFantics     int64 `json:"max_fantics"`
	DailyLimit     int64 `json:"daily_limit"`
	UsedToday      int64 `json:"used_today"`
	RemainingToday int64 `json:"remaining_today"`
	FeeBPS         int   `json:"fee_bps"`
	FanticsPerTON  int64 `json:"fantics_per_ton"`
}

type WithdrawalService struct {
	withdrawals WithdrawalStore
	coord       *Coordinator
	audit       AuditStore
	pub         events.Publisher
	cfg         *config.Config
	now         func() time.Time
	log         *zap.Logger
}

func NewWithdrawalService(
	withdrawals WithdrawalStore,
	coord *Coordinator,
	audit AuditStore,
	pub events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		withdrawals: withdrawals,
		coord:       coord,
		audit:       audit,
		pub:         pub,
		cfg:         cfg,
		now:         time.Now,
		log:         log,
	}
}

// Request debits the user and files a pending withdrawal in one unit of work.
func (s *WithdrawalService) Request(ctx context.Context, userID, amountFantics int64, destination string) (*models.WithdrawalRequest, error) {
	if !s.cfg.WithdrawalEnabled {
		return nil, reject(KindUnavailable, "withdrawals are disabled")
	}
	addr, err := ton.ValidateAddress(destination, s.cfg.TONNetwork)
	if err != nil {
		return nil, reject(KindInvalid, "%v", err)
	}
	if amountFantics < s.cfg.WithdrawalMinFantics {
		return nil, reject(KindInvalid, "minimum withdrawal is %d", s.cfg.WithdrawalMinFantics)
	}
	if amountFantics > s.cfg.WithdrawalMaxFantics {
		return nil, reject(KindInvalid, "maximum withdrawal is %d", s.cfg.WithdrawalMaxFantics)
	}

	amountNano := ton.FanticsToNano(amountFantics, s.cfg.TONToFanticsRate)
	w := &models.WithdrawalRequest{
		UserID:             userID,
		AmountFantics:      amountFantics,
		AmountNano:         amountNano,
		FeeNano:            ton.FeeNano(amountNano, s.cfg.WithdrawalFeeBPS),
		DestinationAddress: addr.String(),
		Status:             models.WithdrawalStatusPending,
	}

	limit := func(ctx context.Context, lease *ledger.Lease) error {
		used, err := s.withdrawals.SumSince(ctx, lease.Tx(), userID, s.now().Add(-withdrawalWindow))
		if err != nil {
			return err
		}
		if used+amountFantics > s.cfg.WithdrawalDailyLimit {
			return reject(KindInvalid, "daily withdrawal limit exceeded: used %d of %d", used, s.cfg.WithdrawalDailyLimit)
		}
		return nil
	}
	insert := func(ctx context.Context, lease *ledger.Lease) error {
		return s.withdrawals.Create(ctx, lease.Tx(), w)
	}

	res, err := s.coord.Debit(ctx, userID, amountFantics, limit, insert)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, res.Rejection()
	}

	writeAudit(ctx, s.audit, s.log, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "withdrawal_requested",
		EntityType:  "withdrawal",
		EntityID:    idString(w.ID),
		Meta:        map[string]any{"amount": amountFantics, "destination": w.DestinationAddress},
	})
	publishLedger(ctx, s.pub, s.log, events.EventWithdrawalCreated, userID, map[string]any{
		"withdrawal_id": w.ID,
		"amount":        amountFantics,
		"balance":       res.Balance,
	})
	s.log.Info("withdrawal requested",
		zap.Int64("withdrawal_id", w.ID),
		zap.Int64("user_id", userID),
		zap.Int64("amount", amountFantics),
	)
	return w, nil
}

// Cancel refunds a still-pending request of the caller.
func (s *WithdrawalService) Cancel(ctx context.Context, userID, id int64) (*models.WithdrawalRequest, error) {
	w, err := s.withdrawals.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, reject(KindNotFound, "withdrawal not found")
	}
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, reject(KindForbidden, "withdrawal belongs to another user")
	}
	if w.Status != models.WithdrawalStatusPending {
		return nil, reject(KindConflict, "withdrawal is in status %s", w.Status)
	}

	cancel := func(ctx context.Context, lease *ledger.Lease) error {
		err := s.withdrawals.Transition(ctx, lease.Tx(), id, models.WithdrawalStatusPending, models.WithdrawalStatusCancelled, nil, nil)
		if errors.Is(err, repositories.ErrNotPending) {
			return reject(KindConflict, "withdrawal is already being processed")
		}
		return err
	}

	res, err := s.coord.Credit(ctx, userID, w.AmountFantics, cancel)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, res.Rejection()
	}

	w.Status = models.WithdrawalStatusCancelled
	publishLedger(ctx, s.pub, s.log, events.EventBalanceChanged, userID, map[string]any{
		"delta":   w.AmountFantics,
		"balance": res.Balance,
		"reason":  "withdrawal_cancelled",
	})
	return w, nil
}

func (s *WithdrawalService) ListForUser(ctx context.Context, userID int64, limit int) ([]models.WithdrawalRequest, error) {
	out, err := s.withdrawals.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.WithdrawalRequest{}
	}
	return out, nil
}

func (s *WithdrawalService) Info(ctx context.Context, userID int64) (*WithdrawalInfo, error) {
	used, err := s.withdrawals.SumSince(ctx, nil, userID, s.now().Add(-withdrawalWindow))
	if err != nil {
		return nil, err
	}
	remaining := s.cfg.WithdrawalDailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return &WithdrawalInfo{
		Enabled:        s.cfg.WithdrawalEnabled,
		MinFantics:     s.cfg.WithdrawalMinFantics,
		MaxFantics:     s.cfg.WithdrawalMaxFantics,
		DailyLimit:     s.cfg.WithdrawalDailyLimit,
		UsedToday:      used,
		RemainingToday: remaining,
		FeeBPS:         s.cfg.WithdrawalFeeBPS,
		FanticsPerTON:  s.cfg.TONToFanticsRate,
	}, nil
}

// ProcessPending claims up to limit pending requests and pays them out.
// Network I/O happens outside any ledger lease; a failed send refunds the user.
func (s *WithdrawalService) ProcessPending(ctx context.Context, sender Sender, limit int) (int, error) {
	claimed, err := s.withdrawals.ClaimPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("claim pending withdrawals: %w", err)
	}

	done := 0
	for _, w := range claimed {
		payout := w.AmountNano - w.FeeNano
		comment := fmt.Sprintf("Fantics withdrawal #%d", w.ID)

		hash, sendErr := sender.Send(ctx, w.DestinationAddress, payout, comment)
		if sendErr != nil {
			s.log.Error("withdrawal send failed", zap.Int64("withdrawal_id", w.ID), zap.Error(sendErr))
			if err := s.refund(ctx, w, sendErr.Error()); err != nil {
				s.log.Error("withdrawal refund failed", zap.Int64("withdrawal_id", w.ID), zap.Error(err))
			}
			continue
		}

		if err := s.withdrawals.Transition(ctx, nil, w.ID, models.WithdrawalStatusProcessing, models.WithdrawalStatusCompleted, &hash, nil); err != nil {
			// деньги уже ушли: оставляем processing для ручного разбора
			s.log.Error("failed to mark withdrawal completed", zap.Int64("withdrawal_id", w.ID), zap.String("tx_hash", hash), zap.Error(err))
			continue
		}
		done++

		publishLedger(ctx, s.pub, s.log, events.EventWithdrawalCompleted, w.UserID, map[string]any{
			"withdrawal_id": w.ID,
			"amount":        w.AmountFantics,
			"tx_hash":       hash,
		})
	}
	return done, nil
}

func (s *WithdrawalService) refund(ctx context.Context, w models.WithdrawalRequest, reason string) error {
	fail := func(ctx context.Context, lease *ledger.Lease) error {
		return s.withdrawals.Transition(ctx, lease.Tx(), w.ID, models.WithdrawalStatusProcessing, models.WithdrawalStatusFailed, nil, &reason)
	}

	res, err := s.coord.Credit(ctx, w.UserID, w.AmountFantics, fail)
	if err != nil {
		return err
	}
	if !res.Success {
		return res.Rejection()
	}

	writeAudit(ctx, s.audit, s.log, models.AuditLog{
		ActorType:  "system",
		Action:     "withdrawal_refunded",
		EntityType: "withdrawal",
		EntityID:   idString(w.ID),
		Meta:       map[string]any{"amount": w.AmountFantics, "error": reason},
	})
	publishLedger(ctx, s.pub, s.log, events.EventWithdrawalFailed, w.UserID, map[string]any{
		"withdrawal_id": w.ID,
		"amount":        w.AmountFantics,
		"balance":       res.Balance,
	})
	return nil
}
