package models

import "time"

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
	PaymentStatusExpired   = "expired"
)

// Payment methods
const (
	PaymentMethodTON   = "ton"
	PaymentMethodStars = "telegram_stars"
)

// Valid state transitions: from -> []to
var ValidPaymentTransitions = map[string][]string{
	PaymentStatusPending:   {PaymentStatusConfirmed, PaymentStatusFailed, PaymentStatusExpired},
	PaymentStatusConfirmed: {},
	PaymentStatusFailed:    {},
	PaymentStatusExpired:   {},
}

func IsValidPaymentTransition(from, to string) bool {
	return isValidTransition(ValidPaymentTransitions, from, to)
}

func IsValidPaymentMethod(method string) bool {
	return method == PaymentMethodTON || method == PaymentMethodStars
}

type PendingPayment struct {
	PaymentID          string     `json:"payment_id"`
	UserID             int64      `json:"user_id"`
	AmountFantics      int64      `json:"amount_fantics"`
	AmountNano         int64      `json:"amount_nano"`
	PaymentMethod      string     `json:"payment_method"`
	Status             string     `json:"status"`
	DestinationAddress *string    `json:"destination_address,omitempty"`
	Comment            *string    `json:"comment,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpiresAt          time.Time  `json:"expires_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	TransactionHash    *string    `json:"transaction_hash,omitempty"`
}

func (p *PendingPayment) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// SuccessfulPayment is an append-only audit row of a completed top-up.
type SuccessfulPayment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	PaymentMethod   string    `json:"payment_method"`
	AmountFantics   int64     `json:"amount_fantics"`
	AmountNano      int64     `json:"amount_nano"`
	SenderWallet    *string   `json:"sender_wallet,omitempty"`
	TransactionHash *string   `json:"transaction_hash,omitempty"`
	PaymentID       *string   `json:"payment_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func isValidTransition(table map[string][]string, from, to string) bool {
	allowed, ok := table[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
