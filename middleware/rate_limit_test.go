package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinWindow(t *testing.T) {
	rl := &RateLimiter{
		records:      make(map[string]*submitRecord),
		maxSubmits:   3,
		windowPeriod: time.Minute,
	}

	for i := 0; i < 3; i++ {
		allowed, remaining, _ := rl.Allow("10.0.0.1")
		if !allowed {
			t.Fatalf("submission %d denied, want allowed", i+1)
		}
		if remaining != 3-i-1 {
			t.Errorf("remaining = %d after submission %d, want %d", remaining, i+1, 3-i-1)
		}
	}

	allowed, _, retryAfter := rl.Allow("10.0.0.1")
	if allowed {
		t.Fatal("fourth submission allowed, want denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("retryAfter = %v, want within (0, 1m]", retryAfter)
	}

	// A different IP has its own budget.
	if allowed, _, _ := rl.Allow("10.0.0.2"); !allowed {
		t.Error("fresh IP denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := &RateLimiter{
		records:      make(map[string]*submitRecord),
		maxSubmits:   1,
		windowPeriod: 10 * time.Millisecond,
	}

	rl.Allow("10.0.0.1")
	if allowed, _, _ := rl.Allow("10.0.0.1"); allowed {
		t.Fatal("second submission inside window allowed")
	}

	time.Sleep(20 * time.Millisecond)
	if allowed, _, _ := rl.Allow("10.0.0.1"); !allowed {
		t.Error("submission after window expiry denied")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := &RateLimiter{
		records:      make(map[string]*submitRecord),
		maxSubmits:   1,
		windowPeriod: 10 * time.Millisecond,
	}

	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")
	time.Sleep(20 * time.Millisecond)
	rl.cleanup()

	rl.mu.RLock()
	n := len(rl.records)
	rl.mu.RUnlock()
	if n != 0 {
		t.Errorf("%d records after cleanup, want 0", n)
	}
}
