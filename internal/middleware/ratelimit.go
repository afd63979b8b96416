package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// MemoryLimiter is a fixed-window counter for single-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*rateBucket), now: time.Now}
}

func (r *MemoryLimiter) Allow(key string, limit int, window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	bucket, ok := r.buckets[key]
	if !ok || now.After(bucket.windowEnd) {
		r.buckets[key] = &rateBucket{count: 1, windowEnd: now.Add(window)}
		return true
	}
	if bucket.count >= limit {
		return false
	}
	bucket.count++
	return true
}

// RateLimit rejects requests over limit per window with 429. An empty key,
// a nil limiter or a non-positive limit disables it.
func RateLimit(limiter Limiter, keyFn func(*gin.Context) string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" || limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		if !limiter.Allow(key, limit, window) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, retry later"})
			return
		}
		c.Next()
	}
}

// ActorKeyFn keys a limiter by prefix and authenticated actor.
func ActorKeyFn(prefix string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		actor, ok := CurrentActor(c)
		if !ok {
			return ""
		}
		return prefix + ":" + actor.ID()
	}
}
