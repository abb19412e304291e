package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	sweepInterval = 5 * time.Minute
	clientIdleTTL = 10 * time.Minute
)

// RateLimiter applies a per-client token bucket. Clients are keyed by IP;
// chi's RealIP middleware runs earlier in the chain, so RemoteAddr already
// reflects the forwarded address when a proxy is involved.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*tokenBucket
	perSec    float64
	burst     float64
	lastSweep time.Time
	now       func() time.Time
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows perSec sustained requests per client with the given
// burst headroom.
func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*tokenBucket),
		perSec:    perSec,
		burst:     float64(burst),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow spends one token for the client, refilling at the configured rate.
// Idle clients are swept opportunistically so the map cannot grow without
// bound.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > sweepInterval {
		for key, b := range rl.clients {
			if now.Sub(b.seen) > clientIdleTTL {
				delete(rl.clients, key)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.clients[client]
	if !ok {
		b = &tokenBucket{tokens: rl.burst, seen: now}
		rl.clients[client] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * rl.perSec
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RateLimit rejects clients exceeding the configured request rate with
// 429 Too Many Requests.
func RateLimit(perSec float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(perSec, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}
			if !limiter.Allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
