package handlers

import (
	"github.com/fantics-casino/backend/internal/http/dto"
	"github.com/fantics-casino/backend/internal/middleware"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CaseHandler struct {
	cases *services.CaseService
	log   *zap.Logger
}

func NewCaseHandler(cases *services.CaseService, log *zap.Logger) *CaseHandler {
	return &CaseHandler{cases: cases, log: log}
}

// GET /cases
func (h *CaseHandler) ListCases(c *fiber.Ctx) error {
	list, err := h.cases.List(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

// GET /cases/:id
func (h *CaseHandler) GetCase(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid case id")
	}
	cs, err := h.cases.Get(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if cs == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "case not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: cs})
}

// OpenCase списывает стоимость кейса и начисляет выпавший приз.
// POST /cases/:id/open
func (h *CaseHandler) OpenCase(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid case id")
	}
	res, err := h.cases.Open(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

// POST /admin/cases
func (h *CaseHandler) CreateCase(c *fiber.Ctx) error {
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	cs, err := h.cases.Create(c.Context(), req.Name, req.Cost, req.Prizes)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.Info("case created by admin", zap.Int64("admin_id", middleware.GetUserID(c)), zap.Int64("case_id", cs.ID))
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: cs})
}

// PUT /admin/cases/:id
func (h *CaseHandler) UpdateCase(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid case id")
	}
	var req dto.UpdateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	found, err := h.cases.Update(c.Context(), id, req.Name, req.Cost, req.Prizes)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "case not found"})
	}

	cs, err := h.cases.Get(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: cs})
}

// DELETE /admin/cases/:id
func (h *CaseHandler) DeleteCase(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid case id")
	}
	found, err := h.cases.Delete(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "case not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
