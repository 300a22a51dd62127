package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fantics-casino/backend/internal/ledger"
	"go.uber.org/zap"
)

// Step is extra work that must commit or roll back together with a balance change.
// Returning a *Rejection rolls back and turns into an unsuccessful Result.
type Step func(ctx context.Context, lease *ledger.Lease) error

// Result of a balance operation. Balance is the new balance on success, the
// balance read under the lease on rejection, and 0 when the user is unknown.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Balance int64  `json:"balance"`
	Reason  Kind   `json:"reason,omitempty"`
}

// Rejection converts an unsuccessful result into a boundary error.
func (r Result) Rejection() *Rejection {
	if r.Success {
		return nil
	}
	return &Rejection{Kind: r.Reason, Message: r.Message, Balance: r.Balance}
}

const internalMessage = "internal error"

// Coordinator is the single path for every balance mutation.
type Coordinator struct {
	store ledger.Store
	log   *zap.Logger
}

func NewCoordinator(store ledger.Store, log *zap.Logger) *Coordinator {
	return &Coordinator{store: store, log: log}
}

// OpenCase charges caseCost and pays prize in one unit of work.
func (c *Coordinator) OpenCase(ctx context.Context, userID, caseCost, prize int64, steps ...Step) (Result, error) {
	if caseCost <= 0 || prize < 0 {
		return invalidAmount(), nil
	}
	return c.run(ctx, userID, "open_case", caseCost,
		func(l *ledger.Lease) error { return l.SettleCase(caseCost, prize) },
		func(int64) string { return fmt.Sprintf("case opened: spent %d, won %d", caseCost, prize) },
		steps)
}

func (c *Coordinator) Debit(ctx context.Context, userID, amount int64, steps ...Step) (Result, error) {
	if amount <= 0 {
		return invalidAmount(), nil
	}
	return c.run(ctx, userID, "debit", amount,
		func(l *ledger.Lease) error { return l.Debit(amount) },
		func(int64) string { return fmt.Sprintf("debited %d fantics", amount) },
		steps)
}

func (c *Coordinator) Credit(ctx context.Context, userID, amount int64, steps ...Step) (Result, error) {
	if amount <= 0 {
		return invalidAmount(), nil
	}
	return c.run(ctx, userID, "credit", 0,
		func(l *ledger.Lease) error { return l.Credit(amount) },
		func(int64) string { return fmt.Sprintf("credited %d fantics", amount) },
		steps)
}

// SetBalance overwrites the balance. Negative amounts are clamped to zero.
func (c *Coordinator) SetBalance(ctx context.Context, userID, amount int64, steps ...Step) (Result, error) {
	return c.run(ctx, userID, "set_balance", 0,
		func(l *ledger.Lease) error { l.Set(amount); return nil },
		func(after int64) string { return fmt.Sprintf("balance set to %d", after) },
		steps)
}

func (c *Coordinator) run(
	ctx context.Context,
	userID int64,
	op string,
	need int64,
	mutate func(*ledger.Lease) error,
	message func(after int64) string,
	steps []Step,
) (Result, error) {
	lease, err := c.store.Acquire(ctx, userID)
	if errors.Is(err, ledger.ErrUserNotFound) {
		return Result{Message: fmt.Sprintf("user %d not found", userID), Reason: KindNotFound}, nil
	}
	if err != nil {
		c.log.Error("ledger acquire failed", zap.String("op", op), zap.Int64("user_id", userID), zap.Error(err))
		return Result{Message: internalMessage}, fmt.Errorf("%s: acquire lease: %w", op, err)
	}

	// дальше операция доводится до конца даже если клиент ушёл
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if rbErr := lease.Rollback(ctx); rbErr != nil {
			c.log.Error("ledger rollback failed", zap.String("op", op), zap.Int64("user_id", userID), zap.Error(rbErr))
		}
	}()

	before := lease.Balance()

	if err := mutate(lease); err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return Result{
				Message: fmt.Sprintf("insufficient funds: have %d, need %d", before, need),
				Balance: before,
				Reason:  KindInsufficientFunds,
			}, nil
		case errors.Is(err, ledger.ErrInvalidAmount):
			r := invalidAmount()
			r.Balance = before
			return r, nil
		case errors.Is(err, ledger.ErrBalanceOverflow):
			return Result{
				Message: fmt.Sprintf("amount too large: balance %d cannot grow further", before),
				Balance: before,
				Reason:  KindInvalid,
			}, nil
		}
		return Result{Message: internalMessage, Balance: before}, fmt.Errorf("%s: %w", op, err)
	}

	for _, step := range steps {
		if err := step(ctx, lease); err != nil {
			if rej, ok := AsRejection(err); ok {
				return Result{Message: rej.Message, Balance: before, Reason: rej.Kind}, nil
			}
			c.log.Error("ledger step failed", zap.String("op", op), zap.Int64("user_id", userID), zap.Error(err))
			return Result{Message: internalMessage, Balance: before}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := lease.Commit(ctx); err != nil {
		c.log.Error("ledger commit failed", zap.String("op", op), zap.Int64("user_id", userID), zap.Error(err))
		return Result{Message: internalMessage, Balance: before}, fmt.Errorf("%s: commit: %w", op, err)
	}

	after := lease.Balance()
	c.log.Info("ledger updated",
		zap.String("op", op),
		zap.Int64("user_id", userID),
		zap.Int64("before", before),
		zap.Int64("after", after),
	)
	return Result{Success: true, Message: message(after), Balance: after}, nil
}

func invalidAmount() Result {
	return Result{Message: "amount must be positive", Reason: KindInvalid}
}
