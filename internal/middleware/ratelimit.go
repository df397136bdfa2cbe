package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/petpals/internal/auth"
	"github.com/dukerupert/petpals/internal/clock"
)

// RealIP extracts the client's IP address, preferring X-Forwarded-For and
// falling back to RemoteAddr.
func RealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First IP in the chain is the original client
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserOrIP keys requests by authenticated user, or by client IP before
// authentication has run.
func UserOrIP(r *http.Request) string {
	if id := auth.UserID(r.Context()); id != "" {
		return "user:" + id
	}
	return "ip:" + RealIP(r)
}

type entry struct {
	count    int
	windowAt time.Time
}

// RateLimiter is a fixed-window in-memory limiter.
type RateLimiter struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]*entry
}

func NewRateLimiter(clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.System()
	}
	return &RateLimiter{
		clock:   clk,
		entries: make(map[string]*entry),
	}
}

// Allow reports whether key is still within limit for the current window,
// and when the window ends.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	e, ok := rl.entries[key]
	if !ok || !now.Before(e.windowAt) {
		e = &entry{count: 1, windowAt: now.Add(window)}
		rl.entries[key] = e
		return true, e.windowAt
	}
	e.count++
	return e.count <= limit, e.windowAt
}

// Cleanup removes expired entries.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for key, e := range rl.entries {
		if !now.Before(e.windowAt) {
			delete(rl.entries, key)
		}
	}
}

// RateLimit returns middleware that rate-limits requests by a key function.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, resetAt := limiter.Allow(keyFunc(r), limit, window)
			if !ok {
				wait := int(resetAt.Sub(limiter.clock.Now()).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(wait))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
