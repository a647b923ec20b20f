package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rcourtman/cpe-console/internal/utils"
)

const (
	defaultMutationRateLimit  = 60
	defaultMutationRateWindow = time.Minute
)

// RateLimiter provides simple IP-based rate limiting for mutating endpoints.
type RateLimiter struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewRateLimiter creates a rate limiter with the given limit per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = defaultMutationRateLimit
	}
	if window <= 0 {
		window = defaultMutationRateWindow
	}
	return &RateLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow checks whether the given IP is within the rate limit.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	valid := pruneAttempts(rl.attempts[ip], cutoff)
	if len(valid) >= rl.limit {
		rl.attempts[ip] = valid
		return false
	}

	rl.attempts[ip] = append(valid, now)
	return true
}

// sweep drops every client whose attempts have all expired. Callers hold mu.
func (rl *RateLimiter) sweep(cutoff time.Time) {
	for ip, attempts := range rl.attempts {
		if valid := pruneAttempts(attempts, cutoff); len(valid) == 0 {
			delete(rl.attempts, ip)
		} else {
			rl.attempts[ip] = valid
		}
	}
}

func pruneAttempts(attempts []time.Time, cutoff time.Time) []time.Time {
	valid := attempts[:0]
	for _, t := range attempts {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}

// Middleware wraps an http.Handler with rate limiting.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := utils.GetClientIP(r.RemoteAddr, r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-IP"))
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeErrorResponse(w, http.StatusTooManyRequests, APIError{
				Message: "Too many requests",
				Code:    "rate_limited",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
