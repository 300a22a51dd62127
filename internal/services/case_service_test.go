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

var starterPrizes = []models.PrizeSpec{
	{Cost: 100, Probability: 30},
	{Cost: 200, Probability: 50},
	{Cost: 500, Probability: 20},
}

func newCaseFixture(balances map[int64]int64) (*CaseService, *fakeCases, *ledger.MemoryStore, *recordingPublisher, *fakeAudit) {
	coord, store := newTestCoordinator(balances)
	cases := newFakeCases()
	pub := &recordingPublisher{}
	audit := &fakeAudit{}
	svc := NewCaseService(cases, coord, audit, pub, testConfig(), zap.NewNop())
	return svc, cases, store, pub, audit
}

func TestCaseService_OpenWithExactBalance(t *testing.T) {
	svc, cases, store, pub, audit := newCaseFixture(map[int64]int64{1: 1000})
	c := cases.add(1000, starterPrizes...)

	res, err := svc.Open(context.Background(), c.ID, 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	switch res.NewBalance {
	case 100, 200, 500:
	default:
		t.Fatalf("new balance %d is not one of the prizes", res.NewBalance)
	}
	if res.PrizeAmount != res.NewBalance || res.CaseCost != 1000 || res.Profit != res.PrizeAmount-1000 {
		t.Errorf("inconsistent result %+v", res)
	}
	if b, _ := store.Balance(context.Background(), 1); b != res.NewBalance {
		t.Errorf("stored balance %d, result says %d", b, res.NewBalance)
	}
	if got := pub.types(); len(got) != 1 || got[0] != events.EventCaseOpened {
		t.Errorf("published %v, want one case_opened", got)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != "case_opened" {
		t.Errorf("audit entries = %+v", audit.entries)
	}
}

func TestCaseService_OpenInsufficientFunds(t *testing.T) {
	svc, cases, store, pub, _ := newCaseFixture(map[int64]int64{1: 300})
	c := cases.add(1000, starterPrizes...)

	_, err := svc.Open(context.Background(), c.ID, 1)
	rej, ok := AsRejection(err)
	if !ok {
		t.Fatalf("expected rejection, got %v", err)
	}
	if rej.Kind != KindInsufficientFunds || rej.Balance != 300 {
		t.Errorf("rejection = %+v", rej)
	}
	if !strings.Contains(rej.Message, "1000") || !strings.Contains(rej.Message, "300") {
		t.Errorf("message %q should mention cost and balance", rej.Message)
	}
	if b, _ := store.Balance(context.Background(), 1); b != 300 {
		t.Errorf("balance changed to %d", b)
	}
	if len(pub.types()) != 0 {
		t.Errorf("rejected open published %v", pub.types())
	}
}

func TestCaseService_OpenUsesDrawSource(t *testing.T) {
	tests := []struct {
		r    float64
		want int64
	}{
		{0, 100},
		{0.2999, 100},
		{0.3, 100},
		{0.31, 200},
		{0.8, 200},
		{0.81, 500},
		{0.9999, 500},
	}

	for _, tt := range tests {
		svc, cases, _, _, _ := newCaseFixture(map[int64]int64{1: 1000})
		c := cases.add(1000, starterPrizes...)
		svc.WithRand(func() float64 { return tt.r })

		res, err := svc.Open(context.Background(), c.ID, 1)
		if err != nil {
			t.Fatalf("r=%v: %v", tt.r, err)
		}
		if res.PrizeAmount != tt.want {
			t.Errorf("r=%v: prize %d, want %d", tt.r, res.PrizeAmount, tt.want)
		}
	}
}

func TestCaseService_OpenErrors(t *testing.T) {
	svc, cases, _, _, _ := newCaseFixture(map[int64]int64{1: 1000})
	c := cases.add(100, starterPrizes...)

	_, err := svc.Open(context.Background(), 999, 1)
	if rej, ok := AsRejection(err); !ok || rej.Kind != KindNotFound {
		t.Errorf("missing case: got %v", err)
	}

	_, err = svc.Open(context.Background(), c.ID, 77)
	if rej, ok := AsRejection(err); !ok || rej.Kind != KindNotFound {
		t.Errorf("missing user: got %v", err)
	}

	broken := cases.add(100, models.PrizeSpec{Cost: 100, Probability: 50})
	_, err = svc.Open(context.Background(), broken.ID, 1)
	if err == nil {
		t.Fatal("expected an error for a stored case with bad weights")
	}
	if _, ok := AsRejection(err); ok {
		t.Errorf("bad stored table should be an internal error, got rejection %v", err)
	}
}

func TestCaseService_ConcurrentOpens(t *testing.T) {
	svc, cases, store, _, _ := newCaseFixture(map[int64]int64{1: 1000})
	c := cases.add(1000, starterPrizes...)

	const n = 50
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		insufficient int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Open(context.Background(), c.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if rej, ok := AsRejection(err); ok && rej.Kind == KindInsufficientFunds {
				insufficient++
			}
		}()
	}
	wg.Wait()

	if successes != 1 || insufficient != n-1 {
		t.Errorf("successes = %d, insufficient = %d", successes, insufficient)
	}
	b, _ := store.Balance(context.Background(), 1)
	if b != 100 && b != 200 && b != 500 {
		t.Errorf("final balance %d is not a prize", b)
	}
}

func TestCaseService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		cost   int64
		prizes []models.PrizeSpec
		valid  bool
	}{
		{"valid", "Gold", 500, starterPrizes, true},
		{"trimmed name", "  Silver  ", 500, starterPrizes, true},
		{"empty name", "   ", 500, starterPrizes, false},
		{"long name", strings.Repeat("я", 256), 500, starterPrizes, false},
		{"zero cost", "Zero", 0, starterPrizes, false},
		{"no prizes", "Empty", 500, nil, false},
		{"weights 95", "Low", 500, []models.PrizeSpec{{Cost: 100, Probability: 45}, {Cost: 200, Probability: 50}}, false},
		{"weights 101", "High", 500, []models.PrizeSpec{{Cost: 100, Probability: 51}, {Cost: 200, Probability: 50}}, false},
		{"weights 99.995", "Near", 500, []models.PrizeSpec{{Cost: 100, Probability: 49.995}, {Cost: 200, Probability: 50}}, true},
		{"duplicate prize", "Dup", 500, []models.PrizeSpec{{Cost: 100, Probability: 50}, {Cost: 100, Probability: 50}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _, _ := newCaseFixture(nil)

			c, err := svc.Create(context.Background(), tt.input, tt.cost, tt.prizes)
			if !tt.valid {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("err = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.ID == 0 || c.Name != strings.TrimSpace(tt.input) {
				t.Errorf("created %+v", c)
			}
		})
	}
}

func TestCaseService_UpdateAndDelete(t *testing.T) {
	svc, cases, _, _, _ := newCaseFixture(nil)
	c := cases.add(1000, starterPrizes...)
	ctx := context.Background()

	cost := int64(1500)
	ok, err := svc.Update(ctx, c.ID, nil, &cost, nil)
	if err != nil || !ok {
		t.Fatalf("update cost: ok=%v err=%v", ok, err)
	}
	got, _ := svc.Get(ctx, c.ID)
	if got.Cost != 1500 || len(got.Prizes) != 3 {
		t.Errorf("after update: %+v", got)
	}

	if _, err := svc.Update(ctx, c.ID, nil, nil, []models.PrizeSpec{{Cost: 1, Probability: 10}}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad prizes: err = %v", err)
	}
	bad := int64(-1)
	if _, err := svc.Update(ctx, c.ID, nil, &bad, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("bad cost: err = %v", err)
	}

	ok, err = svc.Update(ctx, 404, nil, &cost, nil)
	if err != nil || ok {
		t.Errorf("missing case update: ok=%v err=%v", ok, err)
	}

	if ok, _ := svc.Delete(ctx, c.ID); !ok {
		t.Error("delete reported missing case")
	}
	if got, err := svc.Get(ctx, c.ID); got != nil || err != nil {
		t.Errorf("deleted case still visible: %+v %v", got, err)
	}
}

func TestCaseService_SeedDefaults(t *testing.T) {
	svc, cases, _, _, _ := newCaseFixture(nil)
	ctx := context.Background()

	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatal(err)
	}
	list, _ := svc.List(ctx)
	if len(list) != len(DefaultCases) {
		t.Fatalf("seeded %d cases, want %d", len(list), len(DefaultCases))
	}

	// повторный запуск ничего не добавляет
	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := cases.Count(ctx); n != int64(len(DefaultCases)) {
		t.Errorf("count after reseed = %d", n)
	}

	for _, c := range list {
		if _, err := TableFor(&c); err != nil {
			t.Errorf("seeded case %s has invalid table: %v", c.Name, err)
		}
	}
}

func TestCaseService_ListEmpty(t *testing.T) {
	svc, _, _, _, _ := newCaseFixture(nil)
	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("list = %#v, want empty non-nil slice", list)
	}
}
