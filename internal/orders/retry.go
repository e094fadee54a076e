package orders

import (
	"context"
	"math/rand/v2"
	"time"

	"lv-paperledger/internal/tradeerr"
)

// RetryPolicy bounds how often an order is re-run after losing a race for
// its account or hitting a storage failure before commit.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 5
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 10 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 250 * time.Millisecond
	}
	return p
}

// do calls fn until it succeeds, fails with an error that is not safe to
// retry, the attempts run out or ctx is done.
func (p RetryPolicy) do(ctx context.Context, fn func(attempt int) error) error {
	delay := p.BaseDelay
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		// Conflicts and storage failures before commit wrote nothing.
		if !tradeerr.IsRetryable(err) || attempt >= p.Attempts {
			return err
		}

		timer := time.NewTimer(jitter(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return tradeerr.Wrap(tradeerr.KindConcurrencyConflict, "order timed out waiting for the account, retry", ctx.Err())
		case <-timer.C:
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

// jitter spreads d over [d/2, d).
func jitter(d time.Duration) time.Duration {
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int64N(int64(half)))
}
