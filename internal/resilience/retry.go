package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy bounds how a provider call is retried. Only transient errors are
// retried.
type Policy struct {
	Attempts   int           // total tries, the first included
	Backoff    time.Duration // wait before the first retry, doubled after each
	MaxBackoff time.Duration
}

// DefaultPolicy is the extraction policy. The HTTP caller waits through every
// retry, so the budget is small.
func DefaultPolicy() Policy {
	return Policy{Attempts: 2, Backoff: 500 * time.Millisecond, MaxBackoff: 5 * time.Second}
}

// WithAttempts returns DefaultPolicy with Attempts set to n when n is positive.
func WithAttempts(n int) Policy {
	p := DefaultPolicy()
	if n > 0 {
		p.Attempts = n
	}
	return p
}

// wait returns the delay before retry n (zero based) with up to 25% jitter
// either way.
func (p Policy) wait(n int) time.Duration {
	d := p.Backoff
	for i := 0; i < n && d < p.MaxBackoff; i++ {
		d *= 2
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	jitter := time.Duration((rand.Float64()*0.5 - 0.25) * float64(d))
	return d + jitter
}

// Run calls fn until it succeeds or returns an error that is not transient.
// A done ctx or a spent attempt budget returns the last error. op labels the
// retry log lines.
func Run[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := max(p.Attempts, 1)

	var zero T
	for n := 1; ; n++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if n >= attempts || ctx.Err() != nil || !IsTransient(err) {
			return zero, err
		}

		zap.L().Warn("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", n),
			zap.Error(err),
		)
		timer := time.NewTimer(p.wait(n - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}
