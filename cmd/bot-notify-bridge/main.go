package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/db"
	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/services"
	"go.uber.org/zap"
)

// Bot Notify Bridge: слушает ledger-события в Redis и пересылает
// пользовательские уведомления во внутренний API бота.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	bot := services.NewBotClient(cfg.BotInternalURL, log)

	err = subscriber.Subscribe(ctx, events.StreamLedger, func(ev events.Event) {
		forward(ctx, bot, ev, log)
	})
	if err != nil {
		log.Fatal("failed to subscribe", zap.String("stream", events.StreamLedger), zap.Error(err))
	}

	log.Info("bot-notify-bridge started", zap.String("bot_url", cfg.BotInternalURL))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down bot-notify-bridge")
	cancel()
}

func forward(ctx context.Context, bot *services.BotClient, ev events.Event, log *zap.Logger) {
	userID, ok := ev.UserID()
	if !ok {
		return
	}
	text, ok := services.NotificationText(ev)
	if !ok {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := bot.SendNotification(sendCtx, userID, text); err != nil {
		log.Warn("failed to forward notification",
			zap.String("type", ev.Type),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return
	}
	log.Debug("notification forwarded", zap.String("type", ev.Type), zap.Int64("user_id", userID))
}
