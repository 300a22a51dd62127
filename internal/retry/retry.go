// Package retry runs infrastructure calls in a bounded loop with exponential backoff.
package retry

import (
	"context"
	"time"
)

const (
	DefaultAttempts = 3
	DefaultBase     = 200 * time.Millisecond
	maxDelay        = 5 * time.Second
)

type Policy struct {
	Attempts int
	Base     time.Duration
}

var Default = Policy{Attempts: DefaultAttempts, Base: DefaultBase}

// Do calls fn until it succeeds, the attempts run out or ctx is done.
// The delay doubles after every failure and is capped at 5s.
// The last error from fn is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}

	var err error
	delay := p.Base
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == p.Attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return err
}
