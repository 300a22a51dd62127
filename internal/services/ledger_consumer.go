package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/repositories"
	"go.uber.org/zap"
)

// QueueSource is the consuming side of a work queue.
type QueueSource interface {
	Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
}

// LedgerConsumer applies balance commands from the async queue through the same
// Coordinator path the HTTP API uses.
type LedgerConsumer struct {
	coord *Coordinator
	cases CaseStore
	pub   events.Publisher
	log   *zap.Logger
}

func NewLedgerConsumer(coord *Coordinator, cases CaseStore, pub events.Publisher, log *zap.Logger) *LedgerConsumer {
	return &LedgerConsumer{coord: coord, cases: cases, pub: pub, log: log}
}

// Handle applies one decoded message. Business rejections come back as the Result;
// the error is reserved for infrastructure faults.
func (c *LedgerConsumer) Handle(ctx context.Context, msg events.LedgerMessage) (Result, error) {
	switch m := msg.(type) {
	case events.Credit:
		res, err := c.coord.Credit(ctx, m.UserID, m.Amount)
		if err == nil && res.Success {
			c.announce(ctx, m.UserID, m.Amount, res.Balance, m.Reason)
		}
		return res, err

	case events.Debit:
		res, err := c.coord.Debit(ctx, m.UserID, m.Amount)
		if err == nil && res.Success {
			c.announce(ctx, m.UserID, -m.Amount, res.Balance, m.Reason)
		}
		return res, err

	case events.CaseOpened:
		cs, err := c.cases.Get(ctx, m.CaseID)
		if errors.Is(err, repositories.ErrNotFound) {
			return Result{Message: fmt.Sprintf("case %d not found", m.CaseID), Reason: KindNotFound}, nil
		}
		if err != nil {
			return Result{Message: internalMessage}, err
		}
		table, err := TableFor(cs)
		if err != nil {
			return Result{Message: internalMessage}, err
		}
		if !table.Contains(m.Prize) {
			return Result{Message: fmt.Sprintf("prize %d is not in case %d", m.Prize, m.CaseID), Reason: KindInvalid}, nil
		}

		res, err := c.coord.OpenCase(ctx, m.UserID, cs.Cost, m.Prize)
		if err == nil && res.Success {
			publishLedger(ctx, c.pub, c.log, events.EventCaseOpened, m.UserID, map[string]any{
				"case_id": m.CaseID,
				"cost":    cs.Cost,
				"prize":   m.Prize,
				"balance": res.Balance,
			})
		}
		return res, err
	}
	return Result{Message: fmt.Sprintf("unsupported message %T", msg), Reason: KindInvalid}, nil
}

func (c *LedgerConsumer) announce(ctx context.Context, userID, delta, balance int64, reason string) {
	publishLedger(ctx, c.pub, c.log, events.EventBalanceChanged, userID, map[string]any{
		"delta":   delta,
		"balance": balance,
		"reason":  reason,
	})
}

// Run consumes queue until ctx is done. Undecodable messages are logged and dropped.
func (c *LedgerConsumer) Run(ctx context.Context, src QueueSource, queue string) {
	c.log.Info("ledger consumer started", zap.String("queue", queue))
	for {
		if ctx.Err() != nil {
			c.log.Info("ledger consumer stopped")
			return
		}

		data, err := src.Pop(ctx, queue, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.log.Error("queue pop failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if data == nil {
			continue
		}

		msg, err := events.DecodeLedgerMessage(data)
		if err != nil {
			c.log.Warn("dropping bad ledger message", zap.ByteString("data", data), zap.Error(err))
			continue
		}

		res, err := c.Handle(ctx, msg)
		if err != nil {
			c.log.Error("ledger message failed", zap.Int64("user_id", msg.User()), zap.Error(err))
			continue
		}
		if !res.Success {
			c.log.Info("ledger message rejected",
				zap.Int64("user_id", msg.User()),
				zap.String("reason", string(res.Reason)),
				zap.String("message", res.Message),
			)
		}
	}
}
