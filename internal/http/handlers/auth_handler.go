package handlers

import (
	"errors"

	"github.com/fantics-casino/backend/internal/auth"
	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/http/dto"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	balances *services.BalanceService
	verifier *auth.InitDataVerifier
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthHandler(balances *services.BalanceService, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		balances: balances,
		verifier: auth.NewInitDataVerifier(cfg.WebAppSecret, cfg.InitDataMaxAge),
		cfg:      cfg,
		log:      log,
	}
}

// TelegramAuth проверяет initData, создаёт пользователя при первом входе и выдаёт JWT.
// POST /auth/telegram
func (h *AuthHandler) TelegramAuth(c *fiber.Ctx) error {
	var req dto.AuthTelegramRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if req.InitData == "" {
		return badRequest(c, "init_data is required")
	}

	initData, err := h.verifier.Verify(req.InitData)
	if err != nil {
		h.log.Debug("telegram auth validation failed", zap.Error(err))
		if errors.Is(err, auth.ErrInitDataMalformed) {
			return badRequest(c, err.Error())
		}
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	var username *string
	if initData.User.Username != "" {
		username = &initData.User.Username
	}

	user, err := h.balances.EnsureUser(c.Context(), initData.User.ID, username)
	if err != nil {
		return respondError(c, h.log, err)
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, user.UserID, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.AuthResponse{
		Token: token,
		User:  user,
	})
}
