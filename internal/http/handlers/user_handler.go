package handlers

import (
	"github.com/fantics-casino/backend/internal/http/dto"
	"github.com/fantics-casino/backend/internal/middleware"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	balances *services.BalanceService
	log      *zap.Logger
}

func NewUserHandler(balances *services.BalanceService, log *zap.Logger) *UserHandler {
	return &UserHandler{balances: balances, log: log}
}

// GET /me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.balances.Me(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"user": user,
		"role": middleware.GetRole(c),
	}})
}

// GET /me/balance
func (h *UserHandler) GetBalance(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	balance, err := h.balances.GetBalance(c.Context(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BalanceResponse{UserID: userID, Balance: balance}})
}

// ManualCredit пополняет собственный баланс на ограниченную сумму.
// POST /me/balance/credit
func (h *UserHandler) ManualCredit(c *fiber.Ctx) error {
	var req dto.ManualCreditRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	initiator := middleware.GetUserID(c)
	target := initiator
	if req.UserID != nil {
		target = *req.UserID
	}

	change, err := h.balances.ManualCredit(c.Context(), target, req.Amount, initiator)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: change})
}
