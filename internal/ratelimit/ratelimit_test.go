package ratelimit

import (
	"testing"
	"time"
)

func TestBurstAllowsDoubleTap(t *testing.T) {
	limiter := NewInMemoryLimiter(1, time.Minute, 2)

	if !limiter.Allow("viewer-1") {
		t.Fatal("first toggle should pass")
	}
	if !limiter.Allow("viewer-1") {
		t.Fatal("immediate second toggle should pass within the burst")
	}
	if limiter.Allow("viewer-1") {
		t.Fatal("third toggle should be limited")
	}
}

func TestViewersAreIsolated(t *testing.T) {
	limiter := NewInMemoryLimiter(1, time.Minute, 1)

	if !limiter.Allow("viewer-1") {
		t.Fatal("first toggle should pass")
	}
	if limiter.Allow("viewer-1") {
		t.Fatal("viewer-1 should be limited")
	}
	if !limiter.Allow("viewer-2") {
		t.Fatal("viewer-2 has its own bucket")
	}
}

func TestTokensRefill(t *testing.T) {
	limiter := NewInMemoryLimiter(100, time.Second, 1)

	if !limiter.Allow("viewer-1") {
		t.Fatal("first toggle should pass")
	}
	if limiter.Allow("viewer-1") {
		t.Fatal("bucket should be empty")
	}
	time.Sleep(30 * time.Millisecond)
	if !limiter.Allow("viewer-1") {
		t.Fatal("bucket should have refilled")
	}
}
