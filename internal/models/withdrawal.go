package models

import "time"

// Withdrawal statuses
const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusFailed     = "failed"
	WithdrawalStatusCancelled  = "cancelled"
)

var ValidWithdrawalTransitions = map[string][]string{
	WithdrawalStatusPending:    {WithdrawalStatusProcessing, WithdrawalStatusCancelled},
	WithdrawalStatusProcessing: {WithdrawalStatusCompleted, WithdrawalStatusFailed},
	WithdrawalStatusCompleted:  {},
	WithdrawalStatusFailed:     {},
	WithdrawalStatusCancelled:  {},
}

func IsValidWithdrawalTransition(from, to string) bool {
	return isValidTransition(ValidWithdrawalTransitions, from, to)
}

// WithdrawalCountsTowardLimit reports whether a request in this status uses
// up the user's rolling daily allowance.
func WithdrawalCountsTowardLimit(status string) bool {
	switch status {
	case WithdrawalStatusPending, WithdrawalStatusProcessing, WithdrawalStatusCompleted:
		return true
	}
	return false
}

// WithdrawalRequest is created only together with the debit of AmountFantics.
type WithdrawalRequest struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	AmountFantics      int64      `json:"amount_fantics"`
	AmountNano         int64      `json:"amount_nano"` // после вычета комиссии
	FeeNano            int64      `json:"fee_nano"`
	DestinationAddress string     `json:"destination_address"`
	Status             string     `json:"status"`
	TransactionHash    *string    `json:"transaction_hash,omitempty"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ProcessedAt        *time.Time `json:"processed_at,omitempty"`
}
