package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterPerKey(t *testing.T) {
	l := New(1, 2)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Fatalf("third request within the same instant should be rejected")
	}
	if !l.Allow("b") {
		t.Fatalf("other keys have their own bucket")
	}

	l.now = func() time.Time { return base.Add(time.Second) }
	if !l.Allow("a") {
		t.Fatalf("bucket should refill after one second")
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
}
