package services

import (
	"context"
	"strconv"

	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/models"
	"go.uber.org/zap"
)

// publishLedger announces a committed mutation. Failures are logged and never undo the mutation.
func publishLedger(ctx context.Context, pub events.Publisher, log *zap.Logger, eventType string, userID int64, payload map[string]any) {
	if pub == nil {
		return
	}
	ev := events.NewLedgerEvent(eventType, userID, payload)
	if err := pub.Publish(context.WithoutCancel(ctx), events.StreamLedger, ev); err != nil {
		log.Warn("failed to publish ledger event", zap.String("type", eventType), zap.Int64("user_id", userID), zap.Error(err))
	}
}

func writeAudit(ctx context.Context, store AuditStore, log *zap.Logger, entry models.AuditLog) {
	if store == nil {
		return
	}
	if err := store.Log(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func idString(id int64) *string {
	s := strconv.FormatInt(id, 10)
	return &s
}
