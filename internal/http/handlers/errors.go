package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fantics-casino/backend/internal/http/dto"
	"github.com/fantics-casino/backend/internal/middleware"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var kindStatus = map[services.Kind]int{
	services.KindNotFound:          fiber.StatusNotFound,
	services.KindForbidden:         fiber.StatusForbidden,
	services.KindInsufficientFunds: fiber.StatusBadRequest,
	services.KindInvalid:           fiber.StatusBadRequest,
	services.KindConflict:          fiber.StatusConflict,
	services.KindUnavailable:       fiber.StatusServiceUnavailable,
}

// respondError maps a service error to an HTTP response. Anything that is not a
// business rejection is logged and reported as a generic 500.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	reqID := middleware.GetRequestID(c)

	if rej, ok := services.AsRejection(err); ok {
		status, known := kindStatus[rej.Kind]
		if !known {
			status = fiber.StatusBadRequest
		}
		resp := dto.ErrorResponse{Error: rej.Message, Reason: string(rej.Kind), RequestID: reqID}
		if rej.Kind == services.KindInsufficientFunds {
			balance := rej.Balance
			resp.Balance = &balance
		}
		return c.Status(status).JSON(resp)
	}

	if errors.Is(err, services.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:     strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": "),
			Reason:    string(services.KindInvalid),
			RequestID: reqID,
		})
	}

	log.Error("request failed",
		zap.String("request_id", reqID),
		zap.String("path", c.Path()),
		zap.Int64("user_id", middleware.GetUserID(c)),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error", RequestID: reqID})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}

func paramID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return limit
}
