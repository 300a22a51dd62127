package services

import (
	"context"
	"sync"
	"time"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/ledger"
	"github.com/fantics-casino/backend/internal/models"
	"github.com/fantics-casino/backend/internal/repositories"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		TONNetwork:           "mainnet",
		TONHotWalletAddress:  "EQD4FPq-PRDieyQKkizFTRtSDyucUIqrj0v_zXJmqaDp6_0t",
		TONToFanticsRate:     1000,
		TopUpMinFantics:      1,
		TopUpMaxFantics:      1_000_000,
		PaymentExpiry:        30 * time.Minute,
		ManualAddMax:         100_000,
		WithdrawalEnabled:    true,
		WithdrawalMinFantics: 1000,
		WithdrawalMaxFantics: 1_000_000,
		WithdrawalDailyLimit: 5_000_000,
		WithdrawalFeeBPS:     100,
		SeedCases:            true,
	}
}

func newTestCoordinator(balances map[int64]int64) (*Coordinator, *ledger.MemoryStore) {
	store := ledger.NewMemoryStore()
	for id, b := range balances {
		store.AddUser(id, b)
	}
	return NewCoordinator(store, zap.NewNop()), store
}

// --- cases ---

type fakeCases struct {
	mu     sync.Mutex
	nextID int64
	cases  map[int64]*models.Case
}

func newFakeCases() *fakeCases {
	return &fakeCases{cases: make(map[int64]*models.Case)}
}

func (f *fakeCases) add(cost int64, prizes ...models.PrizeSpec) *models.Case {
	c := &models.Case{Name: "case", Cost: cost}
	if err := f.Create(context.Background(), c, prizes); err != nil {
		panic(err)
	}
	return c
}

func (f *fakeCases) Get(_ context.Context, id int64) (*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCases) List(context.Context) ([]models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Case
	for id := int64(1); id <= f.nextID; id++ {
		if c, ok := f.cases[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCases) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.cases)), nil
}

func (f *fakeCases) Create(_ context.Context, c *models.Case, prizes []models.PrizeSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.cases {
		if existing.Name == c.Name && c.Name != "case" {
			return repositories.ErrDuplicate
		}
	}
	f.nextID++
	c.ID = f.nextID
	c.Prizes = toCasePrizes(prizes)
	cp := *c
	f.cases[c.ID] = &cp
	return nil
}

func (f *fakeCases) Update(_ context.Context, id int64, name *string, cost *int64, prizes []models.PrizeSpec) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[id]
	if !ok {
		return false, nil
	}
	if name != nil {
		c.Name = *name
	}
	if cost != nil {
		c.Cost = *cost
	}
	if prizes != nil {
		c.Prizes = toCasePrizes(prizes)
	}
	return true, nil
}

func (f *fakeCases) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.cases[id]
	delete(f.cases, id)
	return ok, nil
}

func toCasePrizes(prizes []models.PrizeSpec) []models.CasePrize {
	out := make([]models.CasePrize, len(prizes))
	for i, p := range prizes {
		out[i] = models.CasePrize{PrizeID: int64(i + 1), Cost: p.Cost, Probability: p.Probability}
	}
	return out
}

// --- payments ---

type fakePayments struct {
	mu        sync.Mutex
	payments  map[string]*models.PendingPayment
	successes []models.SuccessfulPayment
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: make(map[string]*models.PendingPayment)}
}

func (f *fakePayments) Create(_ context.Context, p *models.PendingPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.payments[p.PaymentID] = &cp
	return nil
}

func (f *fakePayments) Get(_ context.Context, id string) (*models.PendingPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) ListByUser(_ context.Context, userID int64, _ int) ([]models.PendingPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PendingPayment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePayments) FindPendingByComment(_ context.Context, comment string) (*models.PendingPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.PendingPayment
	for _, p := range f.payments {
		if p.Comment == nil || *p.Comment != comment || p.Status != models.PaymentStatusPending {
			continue
		}
		if best == nil || p.CreatedAt.Before(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, repositories.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (f *fakePayments) MarkStatus(_ context.Context, id, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (f *fakePayments) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.payments {
		if p.Status == models.PaymentStatusPending && p.IsExpired(now) {
			p.Status = models.PaymentStatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakePayments) TxHashUsed(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.successes {
		if s.TransactionHash != nil && *s.TransactionHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePayments) Claim(_ context.Context, _ pgx.Tx, id, hash string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return repositories.ErrNotPending
	}
	p.Status = models.PaymentStatusConfirmed
	p.ConfirmedAt = &now
	p.TransactionHash = &hash
	return nil
}

func (f *fakePayments) RecordSuccess(_ context.Context, _ pgx.Tx, sp *models.SuccessfulPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes = append(f.successes, *sp)
	return nil
}

func (f *fakePayments) status(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payments[id].Status
}

// --- withdrawals ---

type fakeWithdrawals struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.WithdrawalRequest
}

func newFakeWithdrawals() *fakeWithdrawals {
	return &fakeWithdrawals{items: make(map[int64]*models.WithdrawalRequest)}
}

func (f *fakeWithdrawals) Create(_ context.Context, _ pgx.Tx, w *models.WithdrawalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	w.ID = f.nextID
	w.CreatedAt = time.Now()
	cp := *w
	f.items[w.ID] = &cp
	return nil
}

func (f *fakeWithdrawals) SumSince(_ context.Context, _ pgx.Tx, userID int64, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, w := range f.items {
		if w.UserID == userID && !w.CreatedAt.Before(since) && models.WithdrawalCountsTowardLimit(w.Status) {
			sum += w.AmountFantics
		}
	}
	return sum, nil
}

func (f *fakeWithdrawals) Get(_ context.Context, id int64) (*models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWithdrawals) ListByUser(_ context.Context, userID int64, _ int) ([]models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WithdrawalRequest
	for _, w := range f.items {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeWithdrawals) ClaimPending(_ context.Context, limit int) ([]models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WithdrawalRequest
	for id := int64(1); id <= f.nextID && len(out) < limit; id++ {
		w, ok := f.items[id]
		if ok && w.Status == models.WithdrawalStatusPending {
			w.Status = models.WithdrawalStatusProcessing
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeWithdrawals) Transition(_ context.Context, _ pgx.Tx, id int64, from, to string, hash, errMsg *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.items[id]
	if !ok || w.Status != from {
		return repositories.ErrNotPending
	}
	w.Status = to
	if hash != nil {
		w.TransactionHash = hash
	}
	if errMsg != nil {
		w.ErrorMessage = errMsg
	}
	return nil
}

func (f *fakeWithdrawals) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// --- wallets ---

type fakeWallets struct {
	mu      sync.Mutex
	wallets map[string]*models.TonWallet
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{wallets: make(map[string]*models.TonWallet)}
}

func (f *fakeWallets) Upsert(_ context.Context, w *models.TonWallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.wallets[w.WalletAddress]; ok && existing.UserID != w.UserID {
		return repositories.ErrDuplicate
	}
	w.IsActive = true
	cp := *w
	f.wallets[w.WalletAddress] = &cp
	return nil
}

func (f *fakeWallets) GetByAddress(_ context.Context, addr string) (*models.TonWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[addr]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWallets) ListByUser(_ context.Context, userID int64) ([]models.TonWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TonWallet
	for _, w := range f.wallets {
		if w.UserID == userID && w.IsActive {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeWallets) Deactivate(_ context.Context, userID int64, addr string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[addr]
	if !ok || w.UserID != userID || !w.IsActive {
		return false, nil
	}
	w.IsActive = false
	return true, nil
}

// --- users ---

type fakeUsers struct {
	store *ledger.MemoryStore
	mu    sync.Mutex
	names map[int64]*string
}

func newFakeUsers(store *ledger.MemoryStore) *fakeUsers {
	return &fakeUsers{store: store, names: make(map[int64]*string)}
}

func (f *fakeUsers) Upsert(ctx context.Context, userID int64, username *string) (*models.User, error) {
	f.mu.Lock()
	_, known := f.names[userID]
	if !known || username != nil {
		f.names[userID] = username
	}
	f.mu.Unlock()

	if _, err := f.store.Balance(ctx, userID); err != nil {
		f.store.AddUser(userID, 0)
	}
	return f.Get(ctx, userID)
}

func (f *fakeUsers) Get(ctx context.Context, userID int64) (*models.User, error) {
	balance, err := f.store.Balance(ctx, userID)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.User{UserID: userID, Username: f.names[userID], Fantics: balance}, nil
}

// --- audit / events / queue ---

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAudit) Log(_ context.Context, e models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fakeQueue struct {
	mu    sync.Mutex
	items map[string][]any
}

func (q *fakeQueue) Push(_ context.Context, queue string, v any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items == nil {
		q.items = make(map[string][]any)
	}
	q.items[queue] = append(q.items[queue], v)
	return nil
}
