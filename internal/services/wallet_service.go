package services

import (
	"context"
	"errors"
	"strings"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/models"
	"github.com/fantics-casino/backend/internal/repositories"
	"github.com/fantics-casino/backend/internal/ton"
	"go.uber.org/zap"
)

type WalletService struct {
	wallets WalletStore
	audit   AuditStore
	cfg     *config.Config
	log     *zap.Logger
}

func NewWalletService(
	wallets WalletStore,
	audit AuditStore,
	cfg *config.Config,
	log *zap.Logger,
) *WalletService {
	return &WalletService{
		wallets: wallets,
		audit:   audit,
		cfg:     cfg,
		log:     log,
	}
}

type ConnectWalletRequest struct {
	Address   string `json:"address"`    // "EQ..", "UQ.." или raw "0:abc..."
	Network   string `json:"network"`    // "mainnet" / "testnet"
	PublicKey string `json:"public_key"` // hex, опционально
}

// Connect привязывает TON-кошелёк к пользователю. Привязать можно только себе.
func (s *WalletService) Connect(ctx context.Context, callerID, userID int64, req ConnectWalletRequest) (*models.TonWallet, error) {
	if callerID != userID {
		return nil, reject(KindForbidden, "you can only connect a wallet to your own account")
	}

	network := strings.TrimSpace(req.Network)
	if network == "" {
		network = s.cfg.TONNetwork
	}
	if !strings.EqualFold(network, s.cfg.TONNetwork) {
		return nil, reject(KindInvalid, "network mismatch: expected %s, got %s", s.cfg.TONNetwork, network)
	}

	addr, err := ton.ValidateAddress(req.Address, network)
	if err != nil {
		return nil, reject(KindInvalid, "%v", err)
	}

	w := &models.TonWallet{
		UserID:        userID,
		WalletAddress: addr.String(),
		Network:       &network,
	}
	if pk := strings.TrimSpace(req.PublicKey); pk != "" {
		w.PublicKey = &pk
	}

	if err := s.wallets.Upsert(ctx, w); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, reject(KindConflict, "wallet is already connected to another account")
		}
		return nil, err
	}

	writeAudit(ctx, s.audit, s.log, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "wallet_connected",
		EntityType:  "ton_wallet",
		EntityID:    &w.WalletAddress,
		Meta:        map[string]any{"network": network},
	})
	s.log.Info("wallet connected", zap.Int64("user_id", userID), zap.String("address", w.WalletAddress))

	return w, nil
}

// Disconnect отключает кошелёк владельца (soft deactivate).
func (s *WalletService) Disconnect(ctx context.Context, callerID int64, address string) error {
	addr, err := ton.ParseAddress(address)
	if err != nil {
		return reject(KindInvalid, "%v", err)
	}
	normalized := addr.String()

	ok, err := s.wallets.Deactivate(ctx, callerID, normalized)
	if err != nil {
		return err
	}
	if !ok {
		return reject(KindNotFound, "wallet not found")
	}

	writeAudit(ctx, s.audit, s.log, models.AuditLog{
		ActorUserID: &callerID,
		ActorType:   "user",
		Action:      "wallet_disconnected",
		EntityType:  "ton_wallet",
		EntityID:    &normalized,
	})
	return nil
}

func (s *WalletService) List(ctx context.Context, userID int64) ([]models.TonWallet, error) {
	out, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.TonWallet{}
	}
	return out, nil
}
