package testkit

import (
	"testing"
	"time"
)

var scorerSeam = "roc_auc"

func TestWeeklyEndsAtLastOldestFirst(t *testing.T) {
	last := Day(2018, time.March, 5)
	got := Weekly(last, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if !got[2].Equal(last) || !got[0].Equal(Day(2018, time.February, 19)) {
		t.Fatalf("Weekly = %v", got)
	}
	if Weekly(last, 0) == nil || len(Weekly(last, 0)) != 0 {
		t.Fatalf("Weekly(0) should be empty, non-nil")
	}
}

func TestMustInDelta(t *testing.T) {
	MustInDelta(t, 0.3333, 1.0/3, 1e-3)
}

func TestSwapRestores(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Serial(t)
		Swap(t, &scorerSeam, "log_loss")
		if scorerSeam != "log_loss" {
			t.Fatalf("swap did not apply: %q", scorerSeam)
		}
	})
	if scorerSeam != "roc_auc" {
		t.Fatalf("swap not restored: %q", scorerSeam)
	}
}

func TestSerialReleasesOnCleanup(t *testing.T) {
	for range 2 {
		t.Run("holder", func(t *testing.T) { Serial(t) })
	}
	done := make(chan struct{})
	go func() {
		seamMu.Lock()
		seamMu.Unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock still held after subtests finished")
	}
}

func TestMustPanicAndContain(t *testing.T) {
	MustPanic(t, func() { panic("encoder not fitted") })
	MustContain(t, `{"level":"info","run_id":"r-1"}`, `"run_id":"r-1"`)
}
