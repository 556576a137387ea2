package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowExhaustsBucket(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if !l.Allow("refresh", 2, 1) {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if l.Allow("refresh", 2, 1) {
		t.Fatalf("third call should be limited")
	}
	now = now.Add(time.Second)
	if !l.Allow("refresh", 2, 1) {
		t.Fatalf("expected refill after one second")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 0.001) {
		t.Fatalf("first call should be allowed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "k", 1, 0.001); err == nil {
		t.Fatalf("expected context error")
	}
}
