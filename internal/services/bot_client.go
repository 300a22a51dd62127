package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fantics-casino/backend/internal/events"
	"go.uber.org/zap"
)

// BotClient communicates with the Telegram bot internal API.
type BotClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewBotClient(baseURL string, log *zap.Logger) *BotClient {
	return &BotClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (c *BotClient) SendNotification(ctx context.Context, telegramUserID int64, text string) error {
	body, _ := json.Marshal(map[string]any{
		"telegram_user_id": telegramUserID,
		"text":             text,
	})

	url := fmt.Sprintf("%s/internal/notify", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("failed to send bot notification", zap.Error(err))
		return fmt.Errorf("bot service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bot service returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// NotificationText renders the message a user gets in the bot for a ledger event.
// Events that do not warrant a message report false.
func NotificationText(ev events.Event) (string, bool) {
	num := func(key string) int64 {
		switch v := ev.Payload[key].(type) {
		case float64:
			return int64(v)
		case int64:
			return v
		case int:
			return int64(v)
		}
		return 0
	}

	switch ev.Type {
	case events.EventPaymentConfirmed:
		return fmt.Sprintf("✅ Пополнение на %d фантиков зачислено. Баланс: %d", num("amount"), num("balance")), true
	case events.EventWithdrawalCompleted:
		return fmt.Sprintf("💸 Вывод #%d на %d фантиков отправлен.", num("withdrawal_id"), num("amount")), true
	case events.EventWithdrawalFailed:
		return fmt.Sprintf("⚠️ Вывод #%d не удался, %d фантиков возвращены на баланс.", num("withdrawal_id"), num("amount")), true
	case events.EventCaseOpened:
		if num("prize") >= num("cost")*5 {
			return fmt.Sprintf("🎉 Крупный выигрыш: %d фантиков!", num("prize")), true
		}
	}
	return "", false
}
