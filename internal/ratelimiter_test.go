package internal

import (
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter(2, time.Second)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatalf("expected first two hits to pass")
	}
	if limiter.Allow("a") {
		t.Fatalf("expected third hit inside the window to be limited")
	}
	if !limiter.Allow("b") {
		t.Fatalf("expected keys to be limited independently")
	}

	now = now.Add(1500 * time.Millisecond)
	if !limiter.Allow("a") {
		t.Fatalf("expected hit after the window to pass")
	}

	limiter.Forget("a")
	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatalf("expected forgotten key to start fresh")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("a") {
			t.Fatalf("disabled limiter rejected hit %d", i)
		}
	}
}
