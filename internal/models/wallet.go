package models

import "time"

// TonWallet binds an external TON address to a user. Unbinding is a soft deactivate.
type TonWallet struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	WalletAddress string    `json:"wallet_address"`
	Network       *string   `json:"network,omitempty"`
	PublicKey     *string   `json:"public_key,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
