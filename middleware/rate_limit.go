package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// submitRecord tracks scan submissions from one client IP
type submitRecord struct {
	Count   int
	FirstAt time.Time
}

// RateLimiter bounds how many scan jobs a single client can submit within
// a rolling window. Scans fan out into many provider requests, so an
// unthrottled submitter can exhaust the provider quota for everyone.
type RateLimiter struct {
	mu           sync.RWMutex
	records      map[string]*submitRecord
	maxSubmits   int
	windowPeriod time.Duration
}

// NewRateLimiter creates a rate limiter.
// maxSubmits: maximum submissions allowed within the window
// windowPeriod: time window for counting submissions
func NewRateLimiter(maxSubmits int, windowPeriod time.Duration) *RateLimiter {
	rl := &RateLimiter{
		records:      make(map[string]*submitRecord),
		maxSubmits:   maxSubmits,
		windowPeriod: windowPeriod,
	}
	go rl.startCleanup()
	return rl
}

// startCleanup periodically cleans up old entries
func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup removes expired entries
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, rec := range rl.records {
		if now.Sub(rec.FirstAt) > rl.windowPeriod {
			delete(rl.records, ip)
		}
	}
}

// Allow reports whether the IP may submit another scan, plus how many
// submissions remain and how long until the window resets when denied.
func (rl *RateLimiter) Allow(ip string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rec, exists := rl.records[ip]
	if !exists || now.Sub(rec.FirstAt) > rl.windowPeriod {
		rl.records[ip] = &submitRecord{Count: 1, FirstAt: now}
		return true, rl.maxSubmits - 1, 0
	}

	if rec.Count >= rl.maxSubmits {
		retryAfter := rl.windowPeriod - now.Sub(rec.FirstAt)
		return false, 0, retryAfter
	}

	rec.Count++
	return true, rl.maxSubmits - rec.Count, 0
}

// ScanSubmitLimit returns a middleware that throttles scan submissions
// per client IP.
func ScanSubmitLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, retryAfter := rl.Allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("too many scan submissions, retry in %s", retryAfter.Round(time.Second)),
			})
			return
		}
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Next()
	}
}
