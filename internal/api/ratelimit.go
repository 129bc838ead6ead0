package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/launchlist/internal/pkg/logger"
)

// RateLimiter applies a fixed-window per-client limit to the subscribe
// endpoint, backed by Redis so the limit holds across replicas. It runs
// before the authorization gate so floods cannot burn identity-provider
// lookups.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a rate limiter using the given Redis client.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Limit is middleware rejecting clients over their window budget with 429.
// Redis errors fail open: an unavailable limiter must not take the intake
// path down with it.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ratelimit:subscribe:%s", clientIP(r))

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", "err", err.Error())
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, rl.window)
		}

		if count > int64(rl.limit) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	// middleware.RealIP has already rewritten RemoteAddr from forwarding
	// headers when present
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
