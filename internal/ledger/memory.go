package ledger

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// MemoryStore keeps balances in a map and serializes each user through a
// one-slot channel, so waiting for a lease can be abandoned via ctx.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[int64]int64
	leases   map[int64]chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[int64]int64),
		leases:   make(map[int64]chan struct{}),
	}
}

// AddUser creates a user or resets an existing user's balance.
func (m *MemoryStore) AddUser(userID, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if balance < 0 {
		balance = 0
	}
	m.balances[userID] = balance
	if _, ok := m.leases[userID]; !ok {
		m.leases[userID] = make(chan struct{}, 1)
	}
}

func (m *MemoryStore) Acquire(ctx context.Context, userID int64) (*Lease, error) {
	m.mu.Lock()
	slot, ok := m.leases[userID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrUserNotFound
	}

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m.mu.Lock()
	balance := m.balances[userID]
	m.mu.Unlock()

	return newLease(userID, balance, &memoryUnit{store: m, slot: slot}), nil
}

func (m *MemoryStore) Balance(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return balance, nil
}

type memoryUnit struct {
	store   *MemoryStore
	slot    chan struct{}
	userID  int64
	pending *int64
}

func (u *memoryUnit) write(_ context.Context, userID, balance int64) error {
	u.userID = userID
	u.pending = &balance
	return nil
}

func (u *memoryUnit) commit(context.Context) error {
	if u.pending != nil {
		u.store.mu.Lock()
		u.store.balances[u.userID] = *u.pending
		u.store.mu.Unlock()
	}
	<-u.slot
	return nil
}

func (u *memoryUnit) rollback(context.Context) error {
	u.pending = nil
	<-u.slot
	return nil
}

func (u *memoryUnit) tx() pgx.Tx { return nil }
