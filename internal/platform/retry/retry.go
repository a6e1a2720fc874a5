// Package retry runs an operation with bounded exponential backoff
// Only errors perr.Retryable accepts are retried
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/logger"
)

// Policy bounds a retry loop. Attempts counts the first call
type Policy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// Default is three attempts starting at 500ms, capped at 30s
func Default() Policy {
	return Policy{Attempts: 3, Base: 500 * time.Millisecond, Max: 30 * time.Second}
}

// seams for tests
var (
	sleepCtx = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
	jitter = func(d time.Duration) time.Duration {
		if d <= 1 {
			return d
		}
		return d/2 + rand.N(d/2)
	}
)

// Backoff returns the delay before retry i (0-based): base<<i capped at max,
// jittered into [d/2, d)
func (p Policy) Backoff(i int) time.Duration {
	d := p.Base
	for range i {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			d = p.Max
			break
		}
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return jitter(d)
}

// Do calls fn until it succeeds, returns a non-retryable error, the context
// ends or the attempts run out. The last error is returned
func Do(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	attempts := max(1, p.Attempts)
	var err error
	for i := range attempts {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !perr.Retryable(err) || i == attempts-1 {
			break
		}
		d := p.Backoff(i)
		logger.C(ctx).Warn().Err(err).Str("op", op).Int("attempt", i+1).Dur("backoff", d).Msg("retrying")
		if serr := sleepCtx(ctx, d); serr != nil {
			return serr
		}
	}
	return err
}

// Value is Do for operations that return a value
func Value[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}
