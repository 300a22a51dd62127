package ton

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	tonapi "github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"go.uber.org/zap"
)

// HotWallet signs and sends payouts from the project's V4R2 wallet.
type HotWallet struct {
	w   *wallet.Wallet
	log *zap.Logger
}

func NewHotWallet(api tonapi.APIClientWrapped, seed string, log *zap.Logger) (*HotWallet, error) {
	words := strings.Fields(seed)
	if len(words) != 24 {
		return nil, errors.New("hot wallet seed must be 24 words")
	}
	w, err := wallet.FromSeed(api, words, wallet.V4R2)
	if err != nil {
		return nil, fmt.Errorf("open hot wallet: %w", err)
	}
	return &HotWallet{w: w, log: log}, nil
}

func (h *HotWallet) Address() string {
	return h.w.WalletAddress().String()
}

// Send transfers amountNano to the destination and waits for the transaction to land.
// It returns the hex transaction hash.
func (h *HotWallet) Send(ctx context.Context, to string, amountNano int64, comment string) (string, error) {
	if amountNano <= 0 {
		return "", fmt.Errorf("send amount must be positive, got %d", amountNano)
	}
	dest, err := ParseAddress(to)
	if err != nil {
		return "", err
	}

	msg, err := h.w.BuildTransfer(dest, tlb.FromNanoTON(big.NewInt(amountNano)), dest.IsBounceable(), comment)
	if err != nil {
		return "", fmt.Errorf("build transfer: %w", err)
	}

	tx, _, err := h.w.SendWaitTransaction(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("send transfer: %w", err)
	}

	hash := hex.EncodeToString(tx.Hash)
	h.log.Info("payout sent",
		zap.String("to", dest.String()),
		zap.String("amount", FormatNano(amountNano)),
		zap.String("tx_hash", hash),
	)
	return hash, nil
}
