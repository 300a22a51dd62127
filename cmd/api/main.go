package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/db"
	"github.com/fantics-casino/backend/internal/events"
	apphttp "github.com/fantics-casino/backend/internal/http"
	"github.com/fantics-casino/backend/internal/http/handlers"
	"github.com/fantics-casino/backend/internal/ledger"
	"github.com/fantics-casino/backend/internal/repositories"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/fantics-casino/backend/migrations"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	caseRepo := repositories.NewCaseRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	withdrawalRepo := repositories.NewWithdrawalRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	statsRepo := repositories.NewStatsRepo(pool)

	// Events
	publishers := events.MultiPublisher{events.NewRedisPublisher(rdb, log)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaLedgerTopic, log)
		defer kafkaPub.Close()
		publishers = append(publishers, kafkaPub)
		log.Info("kafka ledger journal enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaLedgerTopic))
	}
	subscriber := events.NewRedisSubscriber(rdb, log)
	queue := events.NewRedisQueue(rdb, log)

	// Ledger
	store := ledger.NewPostgresStore(pool, cfg.LedgerLockTimeout)
	coord := services.NewCoordinator(store, log)

	// Services
	caseService := services.NewCaseService(caseRepo, coord, auditRepo, publishers, cfg, log)
	balanceService := services.NewBalanceService(userRepo, store, coord, auditRepo, publishers, cfg, log)
	paymentService := services.NewPaymentService(paymentRepo, coord, auditRepo, publishers, queue, cfg, log)
	withdrawalService := services.NewWithdrawalService(withdrawalRepo, coord, auditRepo, publishers, cfg, log)
	walletService := services.NewWalletService(walletRepo, auditRepo, cfg, log)
	statsService := services.NewStatsService(statsRepo, rdb, log)

	if err := caseService.SeedDefaults(ctx); err != nil {
		log.Fatal("failed to seed cases", zap.Error(err))
	}

	// Handlers
	wsHub := handlers.NewWSHub(cfg, subscriber, log)
	h := apphttp.Handlers{
		Auth:       handlers.NewAuthHandler(balanceService, cfg, log),
		User:       handlers.NewUserHandler(balanceService, log),
		Case:       handlers.NewCaseHandler(caseService, log),
		Payment:    handlers.NewPaymentHandler(paymentService, log),
		Withdrawal: handlers.NewWithdrawalHandler(withdrawalService, log),
		Wallet:     handlers.NewWalletHandler(walletService, log),
		Admin:      handlers.NewAdminHandler(balanceService, statsService, auditRepo, log),
		WSHub:      wsHub,
	}

	// Start WS hub
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe ws hub", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
