package server

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	limiter := newRateLimiter(2, time.Minute)

	if !limiter.Allow("10.0.0.1", "/api/movements") {
		t.Fatal("first request should be allowed")
	}
	if !limiter.Allow("10.0.0.1", "/api/movements") {
		t.Fatal("second request should be allowed")
	}
	if limiter.Allow("10.0.0.1", "/api/movements") {
		t.Fatal("third request should be blocked")
	}
}

func TestRateLimiterTracksRoutesIndependently(t *testing.T) {
	limiter := newRateLimiter(1, time.Minute)

	if !limiter.Allow("10.0.0.1", "/api/movements") {
		t.Fatal("movement should be allowed")
	}
	if limiter.Allow("10.0.0.1", "/api/movements") {
		t.Fatal("second movement should be blocked")
	}
	if !limiter.Allow("10.0.0.1", "/api/recompute/:item_id") {
		t.Fatal("recompute should have its own window")
	}
	if !limiter.Allow("10.0.0.2", "/api/movements") {
		t.Fatal("another client should have its own window")
	}
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("10.0.0.1", "/api/movements") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("10.0.0.1", "/api/movements") {
		t.Fatal("second request should be blocked")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.Allow("10.0.0.1", "/api/movements") {
		t.Fatal("request after the window should be allowed")
	}
	if len(limiter.windows) != 1 {
		t.Fatalf("expected expired windows pruned, got %d", len(limiter.windows))
	}
}

func TestRateLimiterRejectsUnknownClient(t *testing.T) {
	limiter := newRateLimiter(1, time.Minute)
	if limiter.Allow("", "/api/movements") {
		t.Fatal("empty client should be rejected")
	}
}
