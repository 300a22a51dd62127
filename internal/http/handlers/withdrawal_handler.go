package handlers

import (
	"github.com/fantics-casino/backend/internal/http/dto"
	"github.com/fantics-casino/backend/internal/middleware"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WithdrawalHandler struct {
	withdrawals *services.WithdrawalService
	log         *zap.Logger
}

func NewWithdrawalHandler(withdrawals *services.WithdrawalService, log *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals, log: log}
}

// POST /withdrawals
func (h *WithdrawalHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.DestinationAddress == "" {
		return badRequest(c, "destination_address is required")
	}
	w, err := h.withdrawals.Request(c.Context(), middleware.GetUserID(c), req.Amount, req.DestinationAddress)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: w})
}

// GET /withdrawals
func (h *WithdrawalHandler) List(c *fiber.Ctx) error {
	list, err := h.withdrawals.ListForUser(c.Context(), middleware.GetUserID(c), queryLimit(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

// GET /withdrawals/info
func (h *WithdrawalHandler) Info(c *fiber.Ctx) error {
	info, err := h.withdrawals.Info(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: info})
}

// POST /withdrawals/:id/cancel
func (h *WithdrawalHandler) Cancel(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid withdrawal id")
	}
	w, err := h.withdrawals.Cancel(c.Context(), middleware.GetUserID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: w})
}
