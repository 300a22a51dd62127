package http

import (
	"time"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/http/handlers"
	"github.com/fantics-casino/backend/internal/middleware"
	"github.com/fantics-casino/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Case       *handlers.CaseHandler
	Payment    *handlers.PaymentHandler
	Withdrawal *handlers.WithdrawalHandler
	Wallet     *handlers.WalletHandler
	Admin      *handlers.AdminHandler
	WSHub      *handlers.WSHub
}

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	h Handlers,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/telegram", h.Auth.TelegramAuth)

	// Rate-limited public endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Catalog (public)
	api.Get("/cases", h.Case.ListCases)
	api.Get("/cases/:id", h.Case.GetCase)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", h.User.GetMe)
	protected.Get("/me/balance", h.User.GetBalance)
	protected.Post("/me/balance/credit", middleware.RateLimitMiddleware(rdb, 10, time.Minute), h.User.ManualCredit)

	// Cases
	protected.Post("/cases/:id/open", middleware.RateLimitMiddleware(rdb, 60, time.Minute), h.Case.OpenCase)

	// Payments
	protected.Post("/payments/ton", h.Payment.CreateTON)
	protected.Post("/payments/stars", h.Payment.CreateStars)
	protected.Get("/payments", h.Payment.List)
	protected.Get("/payments/:id", h.Payment.Get)
	protected.Post("/payments/:id/confirm", h.Payment.Confirm)

	// Withdrawals
	protected.Post("/withdrawals", h.Withdrawal.Create)
	protected.Get("/withdrawals", h.Withdrawal.List)
	protected.Get("/withdrawals/info", h.Withdrawal.Info)
	protected.Post("/withdrawals/:id/cancel", h.Withdrawal.Cancel)

	// Wallets
	protected.Get("/wallets", h.Wallet.GetWallets)
	protected.Post("/wallets", h.Wallet.ConnectWallet)
	protected.Delete("/wallets/:address", h.Wallet.DisconnectWallet)

	// Admin
	admin := protected.Group("/admin")
	admin.Post("/cases", middleware.RequirePermission(rbac.PermManageCases, log), h.Case.CreateCase)
	admin.Put("/cases/:id", middleware.RequirePermission(rbac.PermManageCases, log), h.Case.UpdateCase)
	admin.Delete("/cases/:id", middleware.RequirePermission(rbac.PermManageCases, log), h.Case.DeleteCase)
	admin.Put("/users/:id/balance", middleware.RequirePermission(rbac.PermSetBalance, log), h.Admin.SetBalance)
	admin.Get("/stats", middleware.RequirePermission(rbac.PermViewStats, log), h.Admin.Stats)
	admin.Get("/audit", middleware.RequirePermission(rbac.PermViewStats, log), h.Admin.Audit)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(h.WSHub.HandleWS))
}
