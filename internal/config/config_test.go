package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TON_TO_FANTICS_RATE", "")
	t.Setenv("MANUAL_ADD_MAX_FANTICS", "")
	t.Setenv("PAYMENT_EXPIRY_MINUTES", "")
	t.Setenv("WITHDRAWAL_ENABLED", "")

	cfg := Load()

	if cfg.TONToFanticsRate != 1000 {
		t.Errorf("TONToFanticsRate = %d, want 1000", cfg.TONToFanticsRate)
	}
	if cfg.ManualAddMax != 100_000 {
		t.Errorf("ManualAddMax = %d, want 100000", cfg.ManualAddMax)
	}
	if cfg.PaymentExpiry != 30*time.Minute {
		t.Errorf("PaymentExpiry = %s, want 30m", cfg.PaymentExpiry)
	}
	if cfg.WithdrawalEnabled {
		t.Error("withdrawals must be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WITHDRAWAL_ENABLED", "true")
	t.Setenv("WITHDRAWAL_FEE_BPS", "250")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ADMIN_TELEGRAM_IDS", "1, 2,abc,3")
	t.Setenv("TOPUP_MAX_FANTICS", "not-a-number")

	cfg := Load()

	if !cfg.WithdrawalEnabled {
		t.Error("WithdrawalEnabled = false, want true")
	}
	if cfg.WithdrawalFeeBPS != 250 {
		t.Errorf("WithdrawalFeeBPS = %d, want 250", cfg.WithdrawalFeeBPS)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if len(cfg.AdminTelegramIDs) != 3 {
		t.Errorf("AdminTelegramIDs = %v, want 3 ids", cfg.AdminTelegramIDs)
	}
	if !cfg.IsAdmin(3) || cfg.IsAdmin(4) {
		t.Error("IsAdmin mismatch")
	}
	if cfg.TopUpMaxFantics != 1_000_000 {
		t.Errorf("invalid int must fall back to default, got %d", cfg.TopUpMaxFantics)
	}
}

func TestValidate_FixesUnusableValues(t *testing.T) {
	cfg := &Config{TONToFanticsRate: -5, WithdrawalPollSeconds: 0, WithdrawalBatchSize: -1}
	cfg.Validate(zap.NewNop())

	if cfg.TONToFanticsRate != 1000 {
		t.Errorf("TONToFanticsRate = %d, want 1000", cfg.TONToFanticsRate)
	}
	if cfg.WithdrawalPollSeconds != 60 || cfg.WithdrawalBatchSize != 50 {
		t.Errorf("withdrawal worker settings = %d/%d", cfg.WithdrawalPollSeconds, cfg.WithdrawalBatchSize)
	}
	if cfg.StatsRefreshInterval != 10*time.Minute {
		t.Errorf("StatsRefreshInterval = %s", cfg.StatsRefreshInterval)
	}
}

func TestValidate_WithdrawalFeeBPS(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero fee allowed", 0, 0},
		{"full fee allowed", 10000, 10000},
		{"typical", 250, 250},
		{"above 100 percent", 15000, 100},
		{"negative", -1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{TONToFanticsRate: 1000, WithdrawalFeeBPS: tt.in}
			cfg.Validate(zap.NewNop())
			if cfg.WithdrawalFeeBPS != tt.want {
				t.Errorf("WithdrawalFeeBPS = %d, want %d", cfg.WithdrawalFeeBPS, tt.want)
			}
		})
	}
}
