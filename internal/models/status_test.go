package models

import (
	"testing"
	"time"
)

func TestIsValidPaymentTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{PaymentStatusPending, PaymentStatusConfirmed, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusExpired, true},

		// Terminal statuses never move again
		{PaymentStatusConfirmed, PaymentStatusConfirmed, false},
		{PaymentStatusConfirmed, PaymentStatusPending, false},
		{PaymentStatusFailed, PaymentStatusConfirmed, false},
		{PaymentStatusExpired, PaymentStatusConfirmed, false},

		{"nonexistent", PaymentStatusConfirmed, false},
		{PaymentStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidPaymentTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidPaymentTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestIsValidWithdrawalTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{WithdrawalStatusPending, WithdrawalStatusProcessing, true},
		{WithdrawalStatusPending, WithdrawalStatusCancelled, true},
		{WithdrawalStatusProcessing, WithdrawalStatusCompleted, true},
		{WithdrawalStatusProcessing, WithdrawalStatusFailed, true},

		{WithdrawalStatusPending, WithdrawalStatusCompleted, false},
		{WithdrawalStatusProcessing, WithdrawalStatusCancelled, false},
		{WithdrawalStatusCompleted, WithdrawalStatusFailed, false},
		{WithdrawalStatusCancelled, WithdrawalStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidWithdrawalTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidWithdrawalTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	for _, status := range []string{PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusFailed, PaymentStatusExpired} {
		if _, ok := ValidPaymentTransitions[status]; !ok {
			t.Errorf("payment status %q missing from ValidPaymentTransitions", status)
		}
	}
	for _, status := range []string{
		WithdrawalStatusPending, WithdrawalStatusProcessing, WithdrawalStatusCompleted,
		WithdrawalStatusFailed, WithdrawalStatusCancelled,
	} {
		if _, ok := ValidWithdrawalTransitions[status]; !ok {
			t.Errorf("withdrawal status %q missing from ValidWithdrawalTransitions", status)
		}
	}
}

func TestWithdrawalCountsTowardLimit(t *testing.T) {
	counted := map[string]bool{
		WithdrawalStatusPending:    true,
		WithdrawalStatusProcessing: true,
		WithdrawalStatusCompleted:  true,
		WithdrawalStatusFailed:     false,
		WithdrawalStatusCancelled:  false,
	}
	for status, want := range counted {
		if got := WithdrawalCountsTowardLimit(status); got != want {
			t.Errorf("WithdrawalCountsTowardLimit(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestPendingPayment_IsExpired(t *testing.T) {
	now := time.Now()
	p := PendingPayment{ExpiresAt: now.Add(time.Minute)}
	if p.IsExpired(now) {
		t.Error("payment expiring in the future reported expired")
	}
	if !p.IsExpired(now.Add(2 * time.Minute)) {
		t.Error("payment past expires_at not reported expired")
	}
}
