// Package prize resolves weighted random prizes for cases.
package prize

import (
	"errors"
	"fmt"
)

const (
	minWeightSum = 99.99
	maxWeightSum = 100.01
)

var ErrInvalidWeights = errors.New("invalid prize weights")

// Entry is one prize of a table. Weight is a percentage.
type Entry struct {
	Amount int64
	Weight float64
}

// Table is an immutable, ordered weighted prize list whose weights sum to 100 ± 0.01.
type Table struct {
	entries []Entry
}

// NewTable validates entries and keeps their order. Order is part of the draw
// contract: the fallback on floating-point drift is the last entry.
func NewTable(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: table is empty", ErrInvalidWeights)
	}

	var sum float64
	for i, e := range entries {
		if e.Amount <= 0 {
			return nil, fmt.Errorf("%w: entry %d has non-positive amount %d", ErrInvalidWeights, i, e.Amount)
		}
		if e.Weight <= 0 || e.Weight > 100 {
			return nil, fmt.Errorf("%w: entry %d weight %g is outside (0, 100]", ErrInvalidWeights, i, e.Weight)
		}
		sum += e.Weight
	}

	if sum < minWeightSum || sum > maxWeightSum {
		return nil, fmt.Errorf("%w: weights sum to %g, expected 100", ErrInvalidWeights, sum)
	}

	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Table{entries: cp}, nil
}

// Draw picks an entry. rnd must return a uniform float64 in [0, 1),
// e.g. math/rand/v2.Float64.
func (t *Table) Draw(rnd func() float64) Entry {
	r := rnd() * 100

	var cumulative float64
	for _, e := range t.entries {
		cumulative += e.Weight
		if r <= cumulative {
			return e
		}
	}
	return t.entries[len(t.entries)-1]
}

func (t *Table) Entries() []Entry {
	cp := make([]Entry, len(t.entries))
	copy(cp, t.entries)
	return cp
}

// Contains reports whether amount is one of the table's prizes.
func (t *Table) Contains(amount int64) bool {
	for _, e := range t.entries {
		if e.Amount == amount {
			return true
		}
	}
	return false
}
