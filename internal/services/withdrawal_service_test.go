package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/ledger"
	"github.com/fantics-casino/backend/internal/models"
	"go.uber.org/zap"
)

const payoutAddress = "EQD4FPq-PRDieyQKkizFTRtSDyucUIqrj0v_zXJmqaDp6_0t"

type fakeSender struct {
	mu    sync.Mutex
	fail  error
	sent  []int64
	calls int
}

func (s *fakeSender) Send(_ context.Context, _ string, amountNano int64, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		return "", s.fail
	}
	s.sent = append(s.sent, amountNano)
	return "deadbeef", nil
}

type withdrawalFixture struct {
	svc         *WithdrawalService
	withdrawals *fakeWithdrawals
	store       *ledger.MemoryStore
	pub         *recordingPublisher
}

func newWithdrawalFixture(balances map[int64]int64) *withdrawalFixture {
	coord, store := newTestCoordinator(balances)
	f := &withdrawalFixture{
		withdrawals: newFakeWithdrawals(),
		store:       store,
		pub:         &recordingPublisher{},
	}
	f.svc = NewWithdrawalService(f.withdrawals, coord, &fakeAudit{}, f.pub, testConfig(), zap.NewNop())
	return f
}

func (f *withdrawalFixture) balance(userID int64) int64 {
	b, _ := f.store.Balance(context.Background(), userID)
	return b
}

func TestWithdrawalService_Request(t *testing.T) {
	f := newWithdrawalFixture(map[int64]int64{1: 10_000})

	w, err := f.svc.Request(context.Background(), 1, 2000, payoutAddress)
	if err != nil {
		t.Fatal(err)
	}
	if w.ID == 0 || w.Status != models.WithdrawalStatusPending {
		t.Errorf("withdrawal = %+v", w)
	}
	// 2000 фантиков = 2 TON, комиссия 1%
	if w.AmountNano != 2_000_000_000 || w.FeeNano != 20_000_000 {
		t.Errorf("nano = %d, fee = %d", w.AmountNano, w.FeeNano)
	}
	if f.balance(1) != 8000 {
		t.Errorf("balance = %d, want 8000", f.balance(1))
	}
	if got := f.pub.types(); len(got) != 1 || got[0] != events.EventWithdrawalCreated {
		t.Errorf("published %v", got)
	}
}

func TestWithdrawalService_RequestRejections(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		amount  int64
		addr    string
		mutate  func(*WithdrawalService)
		want    Kind
	}{
		{"disabled", 10_000, 2000, payoutAddress, func(s *WithdrawalService) { s.cfg.WithdrawalEnabled = false }, KindUnavailable},
		{"bad address", 10_000, 2000, "not-an-address", nil, KindInvalid},
		{"testnet address on mainnet", 10_000, 2000, "kQD4FPq-PRDieyQKkizFTRtSDyucUIqrj0v_zXJmqaDp60an", nil, KindInvalid},
		{"below min", 10_000, 999, payoutAddress, nil, KindInvalid},
		{"above max", 10_000_000, 1_000_001, payoutAddress, nil, KindInvalid},
		{"insufficient", 1500, 2000, payoutAddress, nil, KindInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWithdrawalFixture(map[int64]int64{1: tt.balance})
			if tt.mutate != nil {
				tt.mutate(f.svc)
			}

			_, err := f.svc.Request(context.Background(), 1, tt.amount, tt.addr)
			rej, ok := AsRejection(err)
			if !ok || rej.Kind != tt.want {
				t.Fatalf("err = %v, want %s", err, tt.want)
			}
			if f.balance(1) != tt.balance {
				t.Errorf("balance changed to %d", f.balance(1))
			}
			if f.withdrawals.count() != 0 {
				t.Errorf("rejected request was stored")
			}
		})
	}
}

func TestWithdrawalService_DailyLimit(t *testing.T) {
	f := newWithdrawalFixture(map[int64]int64{1: 100_000})
	f.svc.cfg.WithdrawalDailyLimit = 3000
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Request(ctx, 1, 1500, payoutAddress); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	_, err := f.svc.Request(ctx, 1, 1000, payoutAddress)
	rej, ok := AsRejection(err)
	if !ok || rej.Kind != KindInvalid || !strings.Contains(rej.Message, "daily withdrawal limit") {
		t.Fatalf("err = %v", err)
	}
	if f.balance(1) != 97_000 {
		t.Errorf("balance = %d, want 97000", f.balance(1))
	}
	if f.withdrawals.count() != 2 {
		t.Errorf("stored %d requests, want 2", f.withdrawals.count())
	}

	info, err := f.svc.Info(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if info.UsedToday != 3000 || info.RemainingToday != 0 {
		t.Errorf("info = %+v", info)
	}
}

func TestWithdrawalService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds pending", func(t *testing.T) {
		f := newWithdrawalFixture(map[int64]int64{1: 5000})
		w, _ := f.svc.Request(ctx, 1, 2000, payoutAddress)

		got, err := f.svc.Cancel(ctx, 1, w.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != models.WithdrawalStatusCancelled || f.balance(1) != 5000 {
			t.Errorf("status %s, balance %d", got.Status, f.balance(1))
		}

		_, err = f.svc.Cancel(ctx, 1, w.ID)
		if rej, ok := AsRejection(err); !ok || rej.Kind != KindConflict {
			t.Errorf("second cancel: %v", err)
		}
		if f.balance(1) != 5000 {
			t.Errorf("double refund: balance %d", f.balance(1))
		}
	})

	t.Run("other user", func(t *testing.T) {
		f := newWithdrawalFixture(map[int64]int64{1: 5000, 2: 0})
		w, _ := f.svc.Request(ctx, 1, 2000, payoutAddress)

		_, err := f.svc.Cancel(ctx, 2, w.ID)
		if rej, ok := AsRejection(err); !ok || rej.Kind != KindForbidden {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("already processing", func(t *testing.T) {
		f := newWithdrawalFixture(map[int64]int64{1: 5000})
		w, _ := f.svc.Request(ctx, 1, 2000, payoutAddress)
		_, _ = f.withdrawals.ClaimPending(ctx, 10)

		_, err := f.svc.Cancel(ctx, 1, w.ID)
		if rej, ok := AsRejection(err); !ok || rej.Kind != KindConflict {
			t.Errorf("err = %v", err)
		}
		if f.balance(1) != 3000 {
			t.Errorf("balance = %d, want 3000", f.balance(1))
		}
	})
}

func TestWithdrawalService_ProcessPending(t *testing.T) {
	ctx := context.Background()

	t.Run("sends payout minus fee", func(t *testing.T) {
		f := newWithdrawalFixture(map[int64]int64{1: 5000})
		w, _ := f.svc.Request(ctx, 1, 2000, payoutAddress)
		sender := &fakeSender{}

		done, err := f.svc.ProcessPending(ctx, sender, 10)
		if err != nil {
			t.Fatal(err)
		}
		if done != 1 || len(sender.sent) != 1 || sender.sent[0] != 1_980_000_000 {
			t.Errorf("done %d, sent %v", done, sender.sent)
		}
		got, _ := f.withdrawals.Get(ctx, w.ID)
		if got.Status != models.WithdrawalStatusCompleted || got.TransactionHash == nil || *got.TransactionHash != "deadbeef" {
			t.Errorf("withdrawal = %+v", got)
		}
		if f.balance(1) != 3000 {
			t.Errorf("balance = %d", f.balance(1))
		}

		done, _ = f.svc.ProcessPending(ctx, sender, 10)
		if done != 0 || sender.calls != 1 {
			t.Errorf("completed withdrawal sent again: done %d, calls %d", done, sender.calls)
		}
	})

	t.Run("refunds on send failure", func(t *testing.T) {
		f := newWithdrawalFixture(map[int64]int64{1: 5000})
		w, _ := f.svc.Request(ctx, 1, 2000, payoutAddress)
		sender := &fakeSender{fail: errors.New("liteserver timeout")}

		done, err := f.svc.ProcessPending(ctx, sender, 10)
		if err != nil {
			t.Fatal(err)
		}
		if done != 0 {
			t.Errorf("done = %d", done)
		}
		got, _ := f.withdrawals.Get(ctx, w.ID)
		if got.Status != models.WithdrawalStatusFailed || got.ErrorMessage == nil || *got.ErrorMessage != "liteserver timeout" {
			t.Errorf("withdrawal = %+v", got)
		}
		if f.balance(1) != 5000 {
			t.Errorf("balance = %d, want refund to 5000", f.balance(1))
		}

		types := f.pub.types()
		if types[len(types)-1] != events.EventWithdrawalFailed {
			t.Errorf("published %v", types)
		}
	})
}
