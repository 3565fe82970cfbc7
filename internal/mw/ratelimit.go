package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused limiter is kept before it is evicted.
const limiterIdleTTL = 10 * time.Minute

// KeyedRateLimiter stores a token bucket per key. Idle buckets expire so the
// set of tracked clients stays bounded.
type KeyedRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

// NewKeyedRateLimiter creates a new KeyedRateLimiter.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: cache.New(limiterIdleTTL, 2*limiterIdleTTL),
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the limiter for key, creating it on first use.
func (k *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if v, found := k.limiters.Get(key); found {
		limiter := v.(*rate.Limiter)
		k.limiters.Set(key, limiter, cache.DefaultExpiration)
		return limiter
	}

	limiter := rate.NewLimiter(k.r, k.b)
	k.limiters.Set(key, limiter, cache.DefaultExpiration)
	return limiter
}

// KeyFunc derives the rate limit key of a request.
type KeyFunc func(c *gin.Context) string

// ByClientIP keys requests by the caller's address.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByUser keys requests by the authenticated user, falling back to the address.
func ByUser(c *gin.Context) string {
	if id := UserID(c); id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter is a middleware for keyed rate limiting.
func RateLimiter(r rate.Limit, b int, key KeyFunc) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(key(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"code": "RATE_LIMITED", "message": "too many requests"},
			})
			return
		}
		c.Next()
	}
}
