package handlers

import (
	"net/url"

	"github.com/fantics-casino/backend/internal/http/dto"
	"github.com/fantics-casino/backend/internal/middleware"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WalletHandler struct {
	walletService *services.WalletService
	log           *zap.Logger
}

func NewWalletHandler(walletService *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, log: log}
}

// ConnectWallet привязывает TON-кошелёк к текущему пользователю.
// POST /wallets
func (h *WalletHandler) ConnectWallet(c *fiber.Ctx) error {
	var req dto.ConnectWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Address == "" {
		return badRequest(c, "address is required")
	}

	userID := middleware.GetUserID(c)
	wallet, err := h.walletService.Connect(c.Context(), userID, userID, services.ConnectWalletRequest{
		Address:   req.Address,
		Network:   req.Network,
		PublicKey: req.PublicKey,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: wallet})
}

// DisconnectWallet отключает кошелёк.
// DELETE /wallets/:address
func (h *WalletHandler) DisconnectWallet(c *fiber.Ctx) error {
	addr, err := url.PathUnescape(c.Params("address"))
	if err != nil || addr == "" {
		return badRequest(c, "invalid address")
	}
	if err := h.walletService.Disconnect(c.Context(), middleware.GetUserID(c), addr); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// GET /wallets
func (h *WalletHandler) GetWallets(c *fiber.Ctx) error {
	list, err := h.walletService.List(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}
