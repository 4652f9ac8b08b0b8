package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_AllowsUpToMax(t *testing.T) {
	now := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)
	l := NewWithClock(3, time.Hour, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		ok, wait := l.Check()
		if !ok || wait != 0 {
			t.Fatalf("send %d: expected allowed, got ok=%v wait=%d", i, ok, wait)
		}
		l.RecordSend()
	}

	ok, wait := l.Check()
	if ok {
		t.Fatal("expected denial at the limit")
	}
	if wait < 1 {
		t.Fatalf("wait must be at least 1 second, got %d", wait)
	}
	if l.Count() != 3 {
		t.Fatalf("expected count 3, got %d", l.Count())
	}
}

func TestLimiter_WindowBoundary(t *testing.T) {
	now := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)
	l := NewWithClock(1, time.Hour, func() time.Time { return now })

	l.RecordSend()
	if ok, _ := l.Check(); ok {
		t.Fatal("expected denial inside the window")
	}

	// One second before expiry the send still counts.
	now = now.Add(time.Hour - time.Second)
	ok, wait := l.Check()
	if ok {
		t.Fatal("expected denial just before expiry")
	}
	if wait != 2 {
		t.Fatalf("expected 2s wait (1s remaining, rounded up), got %d", wait)
	}

	// Strictly past the window the slot frees up.
	now = now.Add(2 * time.Second)
	if ok, _ := l.Check(); !ok {
		t.Fatal("expected allowance once the oldest send expired")
	}
	if l.Count() != 0 {
		t.Fatalf("expected pruned count 0, got %d", l.Count())
	}
}

func TestLimiter_FailedSendsDoNotConsume(t *testing.T) {
	now := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)
	l := NewWithClock(1, time.Hour, func() time.Time { return now })

	// Checking without recording must not use up the budget.
	for i := 0; i < 5; i++ {
		if ok, _ := l.Check(); !ok {
			t.Fatal("check alone consumed the budget")
		}
	}
}
