package dto

import "github.com/fantics-casino/backend/internal/models"

type AuthTelegramRequest struct {
	InitData string `json:"init_data"`
}

type ManualCreditRequest struct {
	Amount int64 `json:"amount"`
	// UserID defaults to the caller; anything else is refused.
	UserID *int64 `json:"user_id,omitempty"`
}

type CreatePaymentRequest struct {
	Amount int64 `json:"amount"` // в фантиках
}

type ConfirmPaymentRequest struct {
	TransactionHash string `json:"transaction_hash"`
}

type CreateWithdrawalRequest struct {
	Amount             int64  `json:"amount"`
	DestinationAddress string `json:"destination_address"`
}

type ConnectWalletRequest struct {
	Address   string `json:"address"`
	Network   string `json:"network,omitempty"`
	PublicKey string `json:"public_key,omitempty"`
}

// Admin

type CreateCaseRequest struct {
	Name   string             `json:"name"`
	Cost   int64              `json:"cost"`
	Prizes []models.PrizeSpec `json:"prizes"`
}

type UpdateCaseRequest struct {
	Name   *string            `json:"name,omitempty"`
	Cost   *int64             `json:"cost,omitempty"`
	Prizes []models.PrizeSpec `json:"prizes,omitempty"`
}

type SetBalanceRequest struct {
	Amount int64 `json:"amount"`
}
