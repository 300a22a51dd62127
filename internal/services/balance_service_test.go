package services

import (
	"context"
	"testing"

	"github.com/fantics-casino/backend/internal/events"
	"go.uber.org/zap"
)

func newBalanceFixture(balances map[int64]int64) (*BalanceService, *recordingPublisher, *fakeAudit) {
	coord, store := newTestCoordinator(balances)
	pub := &recordingPublisher{}
	audit := &fakeAudit{}
	svc := NewBalanceService(newFakeUsers(store), store, coord, audit, pub, testConfig(), zap.NewNop())
	return svc, pub, audit
}

func TestBalanceService_ManualCredit(t *testing.T) {
	tests := []struct {
		name        string
		target      int64
		initiator   int64
		amount      int64
		wantKind    Kind
		wantBalance int64
	}{
		{"own balance", 1, 1, 500, "", 600},
		{"max amount", 1, 1, 100_000, "", 100_100},
		{"someone else", 2, 1, 500, KindForbidden, 0},
		{"someone else tiny", 2, 1, 1, KindForbidden, 0},
		{"zero", 1, 1, 0, KindInvalid, 0},
		{"negative", 1, 1, -5, KindInvalid, 0},
		{"over max", 1, 1, 100_001, KindInvalid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub, audit := newBalanceFixture(map[int64]int64{1: 100, 2: 100})

			res, err := svc.ManualCredit(context.Background(), tt.target, tt.amount, tt.initiator)
			if tt.wantKind != "" {
				rej, ok := AsRejection(err)
				if !ok || rej.Kind != tt.wantKind {
					t.Fatalf("err = %v, want %s", err, tt.wantKind)
				}
				for _, id := range []int64{1, 2} {
					if b, _ := svc.GetBalance(context.Background(), id); b != 100 {
						t.Errorf("user %d balance changed to %d", id, b)
					}
				}
				if len(pub.types()) != 0 {
					t.Errorf("rejected credit published %v", pub.types())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.NewBalance != tt.wantBalance || res.Amount != tt.amount {
				t.Errorf("got %+v", res)
			}
			if got := pub.types(); len(got) != 1 || got[0] != events.EventBalanceChanged {
				t.Errorf("published %v", got)
			}
			if len(audit.entries) != 1 || audit.entries[0].Action != "manual_credit" {
				t.Errorf("audit = %+v", audit.entries)
			}
		})
	}
}

func TestBalanceService_ForbiddenMessage(t *testing.T) {
	svc, _, _ := newBalanceFixture(map[int64]int64{1: 0, 2: 0})

	_, err := svc.ManualCredit(context.Background(), 2, 10, 1)
	rej, ok := AsRejection(err)
	if !ok {
		t.Fatalf("expected rejection, got %v", err)
	}
	if rej.Message != "you can only add fantics to your own balance" {
		t.Errorf("message = %q", rej.Message)
	}
}

func TestBalanceService_EnsureUser(t *testing.T) {
	svc, _, _ := newBalanceFixture(nil)
	ctx := context.Background()

	name := "alice"
	u, err := svc.EnsureUser(ctx, 10, &name)
	if err != nil {
		t.Fatal(err)
	}
	if u.Fantics != 0 || u.Username == nil || *u.Username != "alice" {
		t.Errorf("new user = %+v", u)
	}

	if _, err := svc.EnsureUser(ctx, 0, nil); err == nil {
		t.Error("expected rejection for user id 0")
	}

	me, err := svc.Me(ctx, 10)
	if err != nil || me.UserID != 10 {
		t.Errorf("me = %+v, %v", me, err)
	}
	if _, err := svc.Me(ctx, 11); err == nil {
		t.Error("expected not found for unknown user")
	}
}

func TestBalanceService_GetBalanceUnknown(t *testing.T) {
	svc, _, _ := newBalanceFixture(nil)

	_, err := svc.GetBalance(context.Background(), 5)
	if rej, ok := AsRejection(err); !ok || rej.Kind != KindNotFound {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestBalanceService_AdminSetBalance(t *testing.T) {
	svc, pub, audit := newBalanceFixture(map[int64]int64{1: 700})
	ctx := context.Background()

	res, err := svc.AdminSetBalance(ctx, 99, 1, 42)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewBalance != 42 {
		t.Errorf("balance = %d, want 42", res.NewBalance)
	}

	res, err = svc.AdminSetBalance(ctx, 99, 1, -100)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewBalance != 0 {
		t.Errorf("negative set gave %d, want 0", res.NewBalance)
	}

	if _, err := svc.AdminSetBalance(ctx, 99, 2, 10); err == nil {
		t.Error("expected not found for unknown user")
	}

	if len(pub.types()) != 2 || len(audit.entries) != 2 {
		t.Errorf("events %v, audit %d", pub.types(), len(audit.entries))
	}
	if audit.entries[0].ActorType != "admin" {
		t.Errorf("actor type = %q", audit.entries[0].ActorType)
	}
}
