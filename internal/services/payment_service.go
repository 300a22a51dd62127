package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/ledger"
	"github.com/fantics-casino/backend/internal/models"
	"github.com/fantics-casino/backend/internal/repositories"
	"github.com/fantics-casino/backend/internal/ton"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreatedPayment struct {
	Payment     *models.PendingPayment `json:"payment"`
	AmountTON   string                 `json:"amount_ton,omitempty"`
	PaymentLink string                 `json:"payment_link,omitempty"`
}

type ConfirmResult struct {
	PaymentID       string `json:"payment_id"`
	NewBalance      int64  `json:"new_balance"`
	AddedAmount     int64  `json:"added_amount"`
	PaymentMethod   string `json:"payment_method"`
	TransactionHash string `json:"transaction_hash"`
}

// StarsInvoiceRequest is pushed to the bot, which issues the Telegram Stars invoice.
type StarsInvoiceRequest struct {
	PaymentID     string `json:"payment_id"`
	UserID        int64  `json:"user_id"`
	AmountFantics int64  `json:"amount_fantics"`
}

type PaymentService struct {
	payments PaymentStore
	coord    *Coordinator
	audit    AuditStore
	pub      events.Publisher
	queue    Queue
	cfg      *config.Config
	now      func() time.Time
	log      *zap.Logger
}

func NewPaymentService(
	payments PaymentStore,
	coord *Coordinator,
	audit AuditStore,
	pub events.Publisher,
	queue Queue,
	cfg *config.Config,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		coord:    coord,
		audit:    audit,
		pub:      pub,
		queue:    queue,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

func (s *PaymentService) checkAmount(amount int64) error {
	if amount < s.cfg.TopUpMinFantics || amount > s.cfg.TopUpMaxFantics {
		return reject(KindInvalid, "amount must be between %d and %d", s.cfg.TopUpMinFantics, s.cfg.TopUpMaxFantics)
	}
	return nil
}

// CreateTONPayment opens a pending top-up the user pays by sending TON with the returned comment.
func (s *PaymentService) CreateTONPayment(ctx context.Context, userID, amountFantics int64) (*CreatedPayment, error) {
	if err := s.checkAmount(amountFantics); err != nil {
		return nil, err
	}
	if s.cfg.TONHotWalletAddress == "" {
		return nil, reject(KindUnavailable, "TON payments are not configured")
	}

	now := s.now()
	comment := ton.PaymentComment(amountFantics, userID)
	dest := s.cfg.TONHotWalletAddress
	p := &models.PendingPayment{
		PaymentID:          uuid.NewString(),
		UserID:             userID,
		AmountFantics:      amountFantics,
		AmountNano:         ton.FanticsToNano(amountFantics, s.cfg.TONToFanticsRate),
		PaymentMethod:      models.PaymentMethodTON,
		Status:             models.PaymentStatusPending,
		DestinationAddress: &dest,
		Comment:            &comment,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.cfg.PaymentExpiry),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("ton payment created",
		zap.String("payment_id", p.PaymentID),
		zap.Int64("user_id", userID),
		zap.Int64("amount_fantics", amountFantics),
		zap.Int64("amount_nano", p.AmountNano),
	)

	return &CreatedPayment{
		Payment:     p,
		AmountTON:   ton.FormatNano(p.AmountNano),
		PaymentLink: ton.TransferLink(dest, p.AmountNano, comment),
	}, nil
}

// CreateStarsPayment opens a pending Telegram Stars top-up and asks the bot to invoice it.
func (s *PaymentService) CreateStarsPayment(ctx context.Context, userID, amountFantics int64) (*CreatedPayment, error) {
	if err := s.checkAmount(amountFantics); err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.PendingPayment{
		PaymentID:     uuid.NewString(),
		UserID:        userID,
		AmountFantics: amountFantics,
		PaymentMethod: models.PaymentMethodStars,
		Status:        models.PaymentStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.PaymentExpiry),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	if s.queue != nil {
		req := StarsInvoiceRequest{PaymentID: p.PaymentID, UserID: userID, AmountFantics: amountFantics}
		if err := s.queue.Push(ctx, events.QueueTelegramPayments, req); err != nil {
			s.log.Error("failed to queue stars invoice", zap.String("payment_id", p.PaymentID), zap.Error(err))
		}
	}

	return &CreatedPayment{Payment: p}, nil
}

// Get returns the caller's own payment.
func (s *PaymentService) Get(ctx context.Context, paymentID string, callerID int64) (*models.PendingPayment, error) {
	p, err := s.payments.Get(ctx, paymentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, reject(KindNotFound, "payment not found")
	}
	if err != nil {
		return nil, err
	}
	if p.UserID != callerID {
		return nil, reject(KindForbidden, "payment belongs to another user")
	}
	return p, nil
}

func (s *PaymentService) ListForUser(ctx context.Context, userID int64, limit int) ([]models.PendingPayment, error) {
	out, err := s.payments.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.PendingPayment{}
	}
	return out, nil
}

// Confirm credits a pending payment exactly once.
func (s *PaymentService) Confirm(ctx context.Context, paymentID, txHash string, callerID int64) (*ConfirmResult, error) {
	p, err := s.Get(ctx, paymentID, callerID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, p, strings.TrimSpace(txHash), nil)
}

// ConfirmFromChain settles the oldest pending TON payment whose comment matches an incoming transfer.
func (s *PaymentService) ConfirmFromChain(ctx context.Context, comment string, receivedNano int64, txHash, sender string) (*ConfirmResult, error) {
	p, err := s.payments.FindPendingByComment(ctx, strings.TrimSpace(comment))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, reject(KindNotFound, "no pending payment for comment")
	}
	if err != nil {
		return nil, err
	}
	if receivedNano < p.AmountNano {
		return nil, reject(KindInvalid, "received %s TON, expected %s TON", ton.FormatNano(receivedNano), ton.FormatNano(p.AmountNano))
	}

	var from *string
	if sender != "" {
		from = &sender
	}
	return s.settle(ctx, p, strings.TrimSpace(txHash), from)
}

func (s *PaymentService) settle(ctx context.Context, p *models.PendingPayment, txHash string, sender *string) (*ConfirmResult, error) {
	if txHash == "" {
		return nil, reject(KindInvalid, "transaction hash is required")
	}

	switch p.Status {
	case models.PaymentStatusPending:
	case models.PaymentStatusConfirmed:
		return nil, reject(KindConflict, "payment already confirmed")
	default:
		return nil, reject(KindConflict, "payment is in status %s", p.Status)
	}

	now := s.now()
	if p.IsExpired(now) {
		if _, err := s.payments.MarkStatus(ctx, p.PaymentID, models.PaymentStatusPending, models.PaymentStatusExpired); err != nil {
			s.log.Warn("failed to mark payment expired", zap.String("payment_id", p.PaymentID), zap.Error(err))
		}
		return nil, reject(KindConflict, "payment expired")
	}

	used, err := s.payments.TxHashUsed(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, reject(KindConflict, "transaction hash already used")
	}

	paymentID := p.PaymentID
	claim := func(ctx context.Context, lease *ledger.Lease) error {
		err := s.payments.Claim(ctx, lease.Tx(), paymentID, txHash, now)
		if errors.Is(err, repositories.ErrNotPending) {
			return reject(KindConflict, "payment already confirmed")
		}
		return err
	}
	record := func(ctx context.Context, lease *ledger.Lease) error {
		err := s.payments.RecordSuccess(ctx, lease.Tx(), &models.SuccessfulPayment{
			UserID:          p.UserID,
			PaymentMethod:   p.PaymentMethod,
			AmountFantics:   p.AmountFantics,
			AmountNano:      p.AmountNano,
			SenderWallet:    sender,
			TransactionHash: &txHash,
			PaymentID:       &paymentID,
		})
		if errors.Is(err, repositories.ErrDuplicate) {
			return reject(KindConflict, "transaction hash already used")
		}
		return err
	}

	res, err := s.coord.Credit(ctx, p.UserID, p.AmountFantics, claim, record)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Reason == KindNotFound {
			// владельца платежа нет, зачислять некуда
			if _, err := s.payments.MarkStatus(ctx, paymentID, models.PaymentStatusPending, models.PaymentStatusFailed); err != nil {
				s.log.Warn("failed to mark payment failed", zap.String("payment_id", paymentID), zap.Error(err))
			}
		}
		return nil, res.Rejection()
	}

	writeAudit(ctx, s.audit, s.log, models.AuditLog{
		ActorUserID: &p.UserID,
		ActorType:   "user",
		Action:      "payment_confirmed",
		EntityType:  "payment",
		EntityID:    &paymentID,
		Meta:        map[string]any{"amount": p.AmountFantics, "method": p.PaymentMethod, "tx_hash": txHash},
	})
	publishLedger(ctx, s.pub, s.log, events.EventPaymentConfirmed, p.UserID, map[string]any{
		"payment_id": paymentID,
		"amount":     p.AmountFantics,
		"balance":    res.Balance,
		"method":     p.PaymentMethod,
	})
	s.log.Info("payment confirmed",
		zap.String("payment_id", paymentID),
		zap.Int64("user_id", p.UserID),
		zap.Int64("amount", p.AmountFantics),
		zap.String("tx_hash", txHash),
	)

	return &ConfirmResult{
		PaymentID:       paymentID,
		NewBalance:      res.Balance,
		AddedAmount:     p.AmountFantics,
		PaymentMethod:   p.PaymentMethod,
		TransactionHash: txHash,
	}, nil
}

// ExpireStale moves every pending payment past its deadline to expired.
func (s *PaymentService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.payments.ExpireStale(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired stale payments", zap.Int64("count", n))
	}
	return n, nil
}
