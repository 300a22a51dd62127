package handlers

import (
	"context"
	"strconv"

	"github.com/fantics-casino/backend/internal/http/dto"
	"github.com/fantics-casino/backend/internal/middleware"
	"github.com/fantics-casino/backend/internal/models"
	"github.com/fantics-casino/backend/internal/repositories"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuditReader interface {
	List(ctx context.Context, f repositories.AuditFilter) ([]models.AuditLog, error)
}

type AdminHandler struct {
	balances *services.BalanceService
	stats    *services.StatsService
	audit    AuditReader
	log      *zap.Logger
}

func NewAdminHandler(balances *services.BalanceService, stats *services.StatsService, audit AuditReader, log *zap.Logger) *AdminHandler {
	return &AdminHandler{balances: balances, stats: stats, audit: audit, log: log}
}

// SetBalance выставляет баланс пользователя, отрицательные значения обнуляются.
// PUT /admin/users/:id/balance
func (h *AdminHandler) SetBalance(c *fiber.Ctx) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req dto.SetBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	change, err := h.balances.AdminSetBalance(c.Context(), middleware.GetUserID(c), userID, req.Amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: change})
}

// GET /admin/stats
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	st, err := h.stats.Snapshot(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: st})
}

// Audit отдаёт журнал действий с фильтрами actor, action, entity_type, entity_id.
// GET /admin/audit
func (h *AdminHandler) Audit(c *fiber.Ctx) error {
	f := repositories.AuditFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Limit:      queryLimit(c),
		Offset:     c.QueryInt("offset", 0),
	}
	if actor := c.Query("actor"); actor != "" {
		id, err := strconv.ParseInt(actor, 10, 64)
		if err != nil {
			return badRequest(c, "invalid actor id")
		}
		f.ActorUserID = &id
	}

	logs, err := h.audit.List(c.Context(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}
