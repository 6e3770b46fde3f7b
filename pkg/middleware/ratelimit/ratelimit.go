package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
	"github.com/noah-isme/sma-attendance-portal/pkg/response"
)

// ErrTooManyRequests is returned once a client has spent its tokens.
var ErrTooManyRequests = appErrors.New("RATE_LIMITED", http.StatusTooManyRequests, "too many attempts, please wait a minute")

// TokenBucket limits requests per client IP. Buckets live in process memory,
// so each replica keeps its own budget.
type TokenBucket struct {
	capacity int
	rate     int
	now      func() time.Time

	mu        sync.Mutex
	state     map[string]*bucket
	lastSweep time.Time
}

// sweepInterval bounds how often Allow scans for idle buckets.
const sweepInterval = time.Minute

type bucket struct {
	tokens int
	last   time.Time
}

// NewTokenBucket allows capacity requests in a burst and refills perMinute
// tokens every minute. A non-positive perMinute disables limiting.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: capacity,
		rate:     perMinute,
		now:      time.Now,
		state:    make(map[string]*bucket),
	}
}

// Middleware rejects requests over the limit with a JSON 429.
func (l *TokenBucket) Middleware() gin.HandlerFunc {
	return l.MiddlewareWith(func(c *gin.Context) {
		response.Error(c, ErrTooManyRequests)
	})
}

// MiddlewareWith calls onLimit instead of the handler chain when the client
// is over its limit. HTML routes use it to re-render their form.
func (l *TokenBucket) MiddlewareWith(onLimit gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			onLimit(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Allow takes one token from key's bucket.
func (l *TokenBucket) Allow(key string) bool {
	if l.rate <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true
	}

	l.refill(b, now)
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// refill credits whole tokens earned since b.last and carries the remainder
// forward by advancing b.last only as far as the credited tokens.
func (l *TokenBucket) refill(b *bucket, now time.Time) {
	perToken := time.Minute / time.Duration(l.rate)
	if perToken <= 0 {
		perToken = time.Nanosecond
	}
	earned := int(now.Sub(b.last) / perToken)
	if earned <= 0 {
		return
	}
	b.tokens += earned
	b.last = b.last.Add(time.Duration(earned) * perToken)
	if b.tokens >= l.capacity {
		b.tokens = l.capacity
		b.last = now
	}
}

// sweep drops buckets that have refilled to capacity. A full bucket behaves
// exactly like a missing one.
func (l *TokenBucket) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.state {
		l.refill(b, now)
		if b.tokens >= l.capacity {
			delete(l.state, key)
		}
	}
}

// size reports the number of tracked clients.
func (l *TokenBucket) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state)
}
