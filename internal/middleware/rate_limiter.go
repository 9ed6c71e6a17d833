package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements per-IP rate limiting for API endpoints
type RateLimiter struct {
	limiters      map[string]*rate.Limiter
	mutex         sync.RWMutex
	limit         rate.Limit
	burst         int
	cleanupTicker *time.Ticker
}

// NewRateLimiter creates a rate limiter allowing requestsPerSecond with the
// given burst per client IP.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters:      make(map[string]*rate.Limiter),
		limit:         rate.Limit(requestsPerSecond),
		burst:         burst,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	go rl.cleanup()

	return rl
}

// cleanup periodically resets the limiter map to prevent unbounded growth
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.mutex.Lock()
		rl.limiters = make(map[string]*rate.Limiter)
		rl.mutex.Unlock()
	}
}

// Stop stops the cleanup ticker
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mutex.RLock()
	limiter, exists := rl.limiters[ip]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[ip] = limiter
		rl.mutex.Unlock()
	}

	return limiter
}

// Middleware rejects requests exceeding the per-IP limit with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
