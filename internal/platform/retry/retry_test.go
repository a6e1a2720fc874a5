package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "churnlearn/internal/platform/errors"
	kit "churnlearn/internal/platform/testkit"
)

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	kit.Swap(t, &sleepCtx, func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	})
	kit.Swap(t, &jitter, func(d time.Duration) time.Duration { return d })
	return &slept
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	kit.Serial(t)
	noSleep(t)
	p := Policy{Attempts: 10, Base: time.Second, Max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.Backoff(i); got != w {
			t.Fatalf("Backoff(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestJitterStaysInRange(t *testing.T) {
	for range 100 {
		d := jitter(time.Second)
		if d < 500*time.Millisecond || d >= time.Second {
			t.Fatalf("jitter out of range: %v", d)
		}
	}
}

func TestDo_RetriesUnavailableThenSucceeds(t *testing.T) {
	kit.Serial(t)
	slept := noSleep(t)
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, Base: 10 * time.Millisecond}, "read", func(context.Context) error {
		calls++
		if calls < 3 {
			return perr.Unavailablef("warehouse down")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 || len(*slept) != 2 {
		t.Fatalf("calls=%d slept=%v", calls, *slept)
	}
	if (*slept)[1] != 20*time.Millisecond {
		t.Fatalf("second backoff = %v", (*slept)[1])
	}
}

func TestDo_GivesUpAfterAttempts(t *testing.T) {
	kit.Serial(t)
	noSleep(t)
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 2, Base: time.Millisecond}, "read", func(context.Context) error {
		calls++
		return perr.Unavailablef("still down")
	})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestDo_DoesNotRetryPermanentErrors(t *testing.T) {
	kit.Serial(t)
	noSleep(t)
	calls := 0
	err := Do(context.Background(), Default(), "read", func(context.Context) error {
		calls++
		return perr.NotFoundf("no snapshot")
	})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}

	plain := errors.New("plain")
	calls = 0
	if err := Do(context.Background(), Default(), "read", func(context.Context) error { calls++; return plain }); !errors.Is(err, plain) || calls != 1 {
		t.Fatalf("plain errors are not retried: %v %d", err, calls)
	}
}

func TestDo_StopsOnCancel(t *testing.T) {
	kit.Serial(t)
	noSleep(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Default(), "read", func(context.Context) error {
		calls++
		cancel()
		return perr.Unavailablef("down")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestValue(t *testing.T) {
	kit.Serial(t)
	noSleep(t)
	n := 0
	got, err := Value(context.Background(), Default(), "count", func(context.Context) (int, error) {
		n++
		if n == 1 {
			return 0, perr.Unavailablef("blip")
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("Value = %d, %v", got, err)
	}
}
