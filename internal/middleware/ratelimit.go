package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client token bucket using golang.org/x/time/rate.
// Clients are keyed by remote IP; providers retry aggressively, so the
// limits should stay well above normal delivery rates.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
	enabled  bool
}

// NewRateLimiter creates a rate limiter allowing rps sustained requests per
// second with the given burst per client
func NewRateLimiter(enabled bool, rps, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		enabled:  enabled,
	}
}

// Allow checks if a request from the given client is allowed
func (rl *RateLimiter) Allow(client string) bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	limiter, exists := rl.limiters[client]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[client] = limiter

		// Bound the map so abusive clients cannot grow it without limit
		if len(rl.limiters) > 10000 {
			rl.cleanup()
		}
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

func (rl *RateLimiter) cleanup() {
	count := len(rl.limiters) / 2
	for key := range rl.limiters {
		delete(rl.limiters, key)
		count--
		if count <= 0 {
			break
		}
	}
}

// Middleware rejects over-limit requests with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
