package events

import (
	"context"
	"encoding/json"
	"errors"
)

// StreamLedger is the pub/sub channel every committed balance mutation is announced on.
const StreamLedger = "events:ledger"

// Event types
const (
	EventBalanceChanged      = "balance_changed"
	EventCaseOpened          = "case_opened"
	EventPaymentConfirmed    = "payment_confirmed"
	EventWithdrawalCreated   = "withdrawal_created"
	EventWithdrawalCompleted = "withdrawal_completed"
	EventWithdrawalFailed    = "withdrawal_failed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// NewLedgerEvent builds an event addressed to one user.
func NewLedgerEvent(eventType string, userID int64, payload map[string]any) Event {
	p := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		p[k] = v
	}
	p["user_id"] = userID
	return Event{Type: eventType, Payload: p}
}

// UserID returns the addressed user. After a JSON round trip numbers arrive as float64.
func (e Event) UserID() (int64, bool) {
	switch v := e.Payload["user_id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// MultiPublisher fans one event out to every publisher and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, stream string, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, stream, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
