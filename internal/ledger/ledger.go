// Package ledger stores user balances and hands out exclusive leases on them.
//
// A Lease is the unit of work for one balance-changing operation: it holds the
// user's row exclusively from Acquire until Commit or Rollback, and every
// other Acquire for the same user blocks until then.
package ledger

import (
	"context"
	"errors"
	"math"

	"github.com/jackc/pgx/v5"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrLeaseClosed       = errors.New("lease already committed or rolled back")
	ErrBalanceOverflow   = errors.New("balance would overflow")
)

// Store is the durable per-user balance storage.
type Store interface {
	// Acquire blocks until the caller holds the user's balance exclusively.
	// The wait honours ctx; it returns ErrUserNotFound when the user does not exist.
	Acquire(ctx context.Context, userID int64) (*Lease, error)
	// Balance reads the committed balance without taking the lease.
	Balance(ctx context.Context, userID int64) (int64, error)
}

type unit interface {
	write(ctx context.Context, userID, balance int64) error
	commit(ctx context.Context) error
	rollback(ctx context.Context) error
	tx() pgx.Tx
}

type Lease struct {
	userID   int64
	original int64
	balance  int64
	unit     unit
	closed   bool
}

func newLease(userID, balance int64, u unit) *Lease {
	return &Lease{userID: userID, original: balance, balance: balance, unit: u}
}

func (l *Lease) UserID() int64 { return l.userID }

// Balance is the balance as it will be committed.
func (l *Lease) Balance() int64 { return l.balance }

// Original is the balance read when the lease was acquired.
func (l *Lease) Original() int64 { return l.original }

func (l *Lease) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > math.MaxInt64-l.balance {
		return ErrBalanceOverflow
	}
	l.balance += amount
	return nil
}

func (l *Lease) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if l.balance < amount {
		return ErrInsufficientFunds
	}
	l.balance -= amount
	return nil
}

// SettleCase charges cost and pays prize in one step.
func (l *Lease) SettleCase(cost, prize int64) error {
	if cost <= 0 || prize < 0 {
		return ErrInvalidAmount
	}
	if l.balance < cost {
		return ErrInsufficientFunds
	}
	if prize > math.MaxInt64-(l.balance-cost) {
		return ErrBalanceOverflow
	}
	l.balance = l.balance - cost + prize
	return nil
}

// Set overwrites the balance, clamping negatives to zero.
func (l *Lease) Set(amount int64) {
	if amount < 0 {
		amount = 0
	}
	l.balance = amount
}

// Tx is the database transaction backing the lease, nil for in-memory leases.
// Repositories use it to write rows that must commit together with the balance.
func (l *Lease) Tx() pgx.Tx { return l.unit.tx() }

// Commit persists the balance and releases the lease. If the write fails the
// unit of work is rolled back before the error is returned.
func (l *Lease) Commit(ctx context.Context) error {
	if l.closed {
		return ErrLeaseClosed
	}
	l.closed = true

	if l.balance != l.original {
		if err := l.unit.write(ctx, l.userID, l.balance); err != nil {
			_ = l.unit.rollback(ctx)
			return err
		}
	}
	return l.unit.commit(ctx)
}

// Rollback discards every change and releases the lease. Calling it after
// Commit is a no-op, so it is safe to defer.
func (l *Lease) Rollback(ctx context.Context) error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.unit.rollback(ctx)
}
