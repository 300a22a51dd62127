package middleware

import (
	"strings"

	"github.com/fantics-casino/backend/internal/auth"
	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/rbac"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxUserID, claims.UserID)
		c.Locals(CtxRole, rbac.RoleFor(cfg, claims.UserID))

		return c.Next()
	}
}

// GetUserID returns the authenticated Telegram user id, 0 if none.
func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(CtxUserID).(int64)
	return id
}

func GetRole(c *fiber.Ctx) string {
	role, _ := c.Locals(CtxRole).(string)
	if role == "" {
		return rbac.RolePlayer
	}
	return role
}

// RequirePermission lets the request through only when the caller's role grants perm.
// Must run after AuthMiddleware.
func RequirePermission(perm string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if !rbac.HasPermission(role, perm) {
			log.Warn("permission denied",
				zap.Int64("user_id", GetUserID(c)),
				zap.String("role", role),
				zap.String("permission", perm),
			)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient permissions"})
		}
		return c.Next()
	}
}
