package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow_WithinLimitThenRejects(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	ip := "203.0.113.10"

	if !rl.Allow(ip) {
		t.Fatal("expected first request to be allowed")
	}
	if !rl.Allow(ip) {
		t.Fatal("expected second request to be allowed")
	}
	if rl.Allow(ip) {
		t.Fatal("expected third request to be rejected")
	}
	if !rl.Allow("203.0.113.11") {
		t.Fatal("expected a different client to be allowed")
	}
}

func TestRateLimiterAllow_PrunesExpiredAttempts(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	ip := "203.0.113.20"
	rl.attempts[ip] = []time.Time{time.Now().Add(-2 * time.Minute)}

	if !rl.Allow(ip) {
		t.Fatal("expected request to be allowed after expired attempt is pruned")
	}
	if got := len(rl.attempts[ip]); got != 1 {
		t.Fatalf("expected one retained attempt, got %d", got)
	}
}

func TestRateLimiterAllow_EvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	rl.now = func() time.Time { return now }

	for _, ip := range []string{"203.0.113.30", "203.0.113.31", "203.0.113.32"} {
		if !rl.Allow(ip) {
			t.Fatalf("expected %s to be allowed", ip)
		}
	}
	if got := len(rl.attempts); got != 3 {
		t.Fatalf("tracked clients = %d, want 3", got)
	}

	now = start.Add(45 * time.Second)
	rl.Allow("203.0.113.31")

	now = start.Add(90 * time.Second)
	if !rl.Allow("203.0.113.40") {
		t.Fatal("expected new client to be allowed")
	}
	if _, ok := rl.attempts["203.0.113.30"]; ok {
		t.Fatal("expected idle client to be evicted")
	}
	if _, ok := rl.attempts["203.0.113.32"]; ok {
		t.Fatal("expected idle client to be evicted")
	}
	if got := len(rl.attempts["203.0.113.31"]); got != 1 {
		t.Fatalf("recent client attempts = %d, want 1", got)
	}
	if got := len(rl.attempts); got != 2 {
		t.Fatalf("tracked clients = %d, want 2", got)
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.limit != defaultMutationRateLimit || rl.window != defaultMutationRateWindow {
		t.Fatalf("defaults = %d/%s", rl.limit, rl.window)
	}
}

func TestRateLimiterMiddleware_KeysOnForwardedClient(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	calls := 0
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/devices/x/reboot", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send("198.51.100.5"); got != http.StatusNoContent {
		t.Fatalf("first request status = %d", got)
	}
	if got := send("198.51.100.5"); got != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", got)
	}
	if got := send("198.51.100.6"); got != http.StatusNoContent {
		t.Fatalf("other client status = %d", got)
	}
	if calls != 2 {
		t.Fatalf("next handler calls = %d, want 2", calls)
	}
}
