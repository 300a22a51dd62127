package handlers

import (
	"github.com/fantics-casino/backend/internal/http/dto"
	"github.com/fantics-casino/backend/internal/middleware"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments *services.PaymentService
	log      *zap.Logger
}

func NewPaymentHandler(payments *services.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

// CreateTON создаёт ожидающий TON-платёж с комментарием для сопоставления.
// POST /payments/ton
func (h *PaymentHandler) CreateTON(c *fiber.Ctx) error {
	var req dto.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	created, err := h.payments.CreateTONPayment(c.Context(), middleware.GetUserID(c), req.Amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: created})
}

// POST /payments/stars
func (h *PaymentHandler) CreateStars(c *fiber.Ctx) error {
	var req dto.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	created, err := h.payments.CreateStarsPayment(c.Context(), middleware.GetUserID(c), req.Amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: created})
}

// GET /payments
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	list, err := h.payments.ListForUser(c.Context(), middleware.GetUserID(c), queryLimit(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

// GET /payments/:id
func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	p, err := h.payments.Get(c.Context(), c.Params("id"), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: p})
}

// Confirm зачисляет платёж ровно один раз.
// POST /payments/:id/confirm
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	var req dto.ConfirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.payments.Confirm(c.Context(), c.Params("id"), req.TransactionHash, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}
