package bridge

import (
	"context"
	"testing"
	"time"
)

func TestChatRateLimiterFirstCallIsImmediate(t *testing.T) {
	l := newChatRateLimiter()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.Wait(ctx, 1); err != nil {
		t.Fatalf("first Wait for a fresh chat should not block: %v", err)
	}
}

func TestChatRateLimiterKeepsPerChatBuckets(t *testing.T) {
	l := newChatRateLimiter()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < tgRateLimit-1; i++ {
		if err := l.Wait(ctx, 1); err != nil {
			t.Fatalf("Wait chat 1: %v", err)
		}
	}
	// A different chat id gets its own limiter, so it shouldn't be affected by
	// chat 1 having just spent its whole burst.
	if err := l.Wait(ctx, 2); err != nil {
		t.Fatalf("Wait chat 2: %v", err)
	}
}

func TestChatRateLimiterRespectsContextCancellation(t *testing.T) {
	l := newChatRateLimiter()
	// Exhaust the burst (tgRateLimit-1 tokens) for this chat first.
	for i := 0; i < tgRateLimit-1; i++ {
		if err := l.Wait(context.Background(), 1); err != nil {
			t.Fatalf("initial Wait: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, 1); err == nil {
		t.Fatal("expected Wait to fail once the bucket is empty and the context expires")
	}
}
