package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrBadMessage = errors.New("bad ledger message")

// LedgerMessage is a balance command received on the async queue.
// It is one of Credit, Debit or CaseOpened.
type LedgerMessage interface {
	ledgerMessage()
	User() int64
}

type Credit struct {
	UserID int64
	Amount int64
	Reason string
}

type Debit struct {
	UserID int64
	Amount int64
	Reason string
}

type CaseOpened struct {
	UserID int64
	CaseID int64
	Prize  int64
}

func (Credit) ledgerMessage()     {}
func (Debit) ledgerMessage()      {}
func (CaseOpened) ledgerMessage() {}

func (m Credit) User() int64     { return m.UserID }
func (m Debit) User() int64      { return m.UserID }
func (m CaseOpened) User() int64 { return m.UserID }

// Wire message types
const (
	MessageCredit     = "credit"
	MessageDebit      = "debit"
	MessageCaseOpened = "case_opened"
)

// ledgerEnvelope is the JSON shape on the queue. Older producers send
// "action": "add" | "spend" instead of "type".
type ledgerEnvelope struct {
	Type   string `json:"type,omitempty"`
	Action string `json:"action,omitempty"`
	UserID int64  `json:"user_id"`
	Amount int64  `json:"amount,omitempty"`
	CaseID int64  `json:"case_id,omitempty"`
	Prize  int64  `json:"prize,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func DecodeLedgerMessage(data []byte) (LedgerMessage, error) {
	var env ledgerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if env.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user_id", ErrBadMessage)
	}

	kind := strings.ToLower(strings.TrimSpace(env.Type))
	if kind == "" {
		switch strings.ToLower(strings.TrimSpace(env.Action)) {
		case "add":
			kind = MessageCredit
		case "spend":
			kind = MessageDebit
		case MessageCaseOpened:
			kind = MessageCaseOpened
		}
	}

	switch kind {
	case MessageCredit:
		if env.Amount <= 0 {
			return nil, fmt.Errorf("%w: amount must be positive", ErrBadMessage)
		}
		return Credit{UserID: env.UserID, Amount: env.Amount, Reason: env.Reason}, nil
	case MessageDebit:
		if env.Amount <= 0 {
			return nil, fmt.Errorf("%w: amount must be positive", ErrBadMessage)
		}
		return Debit{UserID: env.UserID, Amount: env.Amount, Reason: env.Reason}, nil
	case MessageCaseOpened:
		if env.CaseID <= 0 {
			return nil, fmt.Errorf("%w: missing case_id", ErrBadMessage)
		}
		if env.Prize < 0 {
			return nil, fmt.Errorf("%w: negative prize", ErrBadMessage)
		}
		return CaseOpened{UserID: env.UserID, CaseID: env.CaseID, Prize: env.Prize}, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrBadMessage, env.Type+env.Action)
}

// EncodeLedgerMessage is the producer side of DecodeLedgerMessage.
func EncodeLedgerMessage(m LedgerMessage) ([]byte, error) {
	var env ledgerEnvelope
	switch v := m.(type) {
	case Credit:
		env = ledgerEnvelope{Type: MessageCredit, UserID: v.UserID, Amount: v.Amount, Reason: v.Reason}
	case Debit:
		env = ledgerEnvelope{Type: MessageDebit, UserID: v.UserID, Amount: v.Amount, Reason: v.Reason}
	case CaseOpened:
		env = ledgerEnvelope{Type: MessageCaseOpened, UserID: v.UserID, CaseID: v.CaseID, Prize: v.Prize}
	default:
		return nil, fmt.Errorf("%w: unsupported %T", ErrBadMessage, m)
	}
	return json.Marshal(env)
}
