package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/db"
	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/ledger"
	"github.com/fantics-casino/backend/internal/repositories"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/fantics-casino/backend/internal/ton"
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

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	caseRepo := repositories.NewCaseRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	withdrawalRepo := repositories.NewWithdrawalRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publishers := events.MultiPublisher{events.NewRedisPublisher(rdb, log)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaLedgerTopic, log)
		defer kafkaPub.Close()
		publishers = append(publishers, kafkaPub)
	}
	queue := events.NewRedisQueue(rdb, log)

	store := ledger.NewPostgresStore(pool, cfg.LedgerLockTimeout)
	coord := services.NewCoordinator(store, log)
	paymentService := services.NewPaymentService(paymentRepo, coord, auditRepo, publishers, queue, cfg, log)
	withdrawalService := services.NewWithdrawalService(withdrawalRepo, coord, auditRepo, publishers, cfg, log)
	consumer := services.NewLedgerConsumer(coord, caseRepo, publishers, log)

	// Выводы отправляет только воркер: без сида кошелька заявки копятся в pending
	var sender services.Sender
	if cfg.WithdrawalEnabled && cfg.TONHotWalletSeed != "" {
		api, err := ton.Connect(ctx, cfg, log)
		if err != nil {
			log.Fatal("failed to connect to TON network", zap.Error(err))
		}
		hw, err := ton.NewHotWallet(api, cfg.TONHotWalletSeed, log)
		if err != nil {
			log.Fatal("failed to open hot wallet", zap.Error(err))
		}
		sender = hw
		log.Info("withdrawal sender ready", zap.String("hot_wallet", hw.Address()))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Run(ctx, queue, events.QueueTransactions)
	}()

	// Health endpoint
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok", "withdrawals": sender != nil})
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.WorkerPort)
		if err := app.Listen(addr); err != nil {
			log.Error("worker health server stopped", zap.Error(err))
		}
	}()

	log.Info("worker started")

	expiryTicker := time.NewTicker(1 * time.Minute)
	withdrawalTicker := time.NewTicker(time.Duration(cfg.WithdrawalPollSeconds) * time.Second)
	defer expiryTicker.Stop()
	defer withdrawalTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expiryTicker.C:
			runPaymentExpiry(ctx, paymentService, log)
		case <-withdrawalTicker.C:
			if sender != nil {
				runWithdrawals(ctx, withdrawalService, sender, cfg.WithdrawalBatchSize, log)
			}
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			_ = app.Shutdown()
			wg.Wait()
			return
		}
	}
}

func runPaymentExpiry(ctx context.Context, payments *services.PaymentService, log *zap.Logger) {
	n, err := payments.ExpireStale(ctx)
	if err != nil {
		log.Error("failed to expire stale payments", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("expired stale payments", zap.Int64("count", n))
	}
}

func runWithdrawals(ctx context.Context, withdrawals *services.WithdrawalService, sender services.Sender, batch int, log *zap.Logger) {
	done, err := withdrawals.ProcessPending(ctx, sender, batch)
	if err != nil {
		log.Error("failed to process withdrawals", zap.Error(err))
		return
	}
	if done > 0 {
		log.Info("withdrawals sent", zap.Int("count", done))
	}
}
