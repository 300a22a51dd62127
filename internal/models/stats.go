package models

import "time"

type StatusTotal struct {
	Count         int64 `json:"count"`
	AmountFantics int64 `json:"amount_fantics"`
}

type Stats struct {
	Users               int64                  `json:"users"`
	TotalFantics        int64                  `json:"total_fantics"`
	PaymentsByStatus    map[string]StatusTotal `json:"payments_by_status"`
	PaymentsByMethod    map[string]StatusTotal `json:"payments_by_method"`
	WithdrawalsByStatus map[string]StatusTotal `json:"withdrawals_by_status"`
	GeneratedAt         time.Time              `json:"generated_at"`
}
