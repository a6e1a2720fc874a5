package testkit

import (
	"math"
	"testing"
	"time"
)

// Day returns midnight UTC of the given calendar date
func Day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// Weekly returns n snapshot dates, oldest first, spaced seven days apart and
// ending at last
func Weekly(last time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range n {
		out[i] = last.AddDate(0, 0, -7*(n-1-i))
	}
	return out
}

// MustInDelta asserts |got-want| <= eps
func MustInDelta(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > eps {
		t.Fatalf("got %v, want %v (+/- %v)", got, want, eps)
	}
}
