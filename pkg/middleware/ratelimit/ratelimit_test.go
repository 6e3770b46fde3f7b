package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAllowRefillsOverTime(t *testing.T) {
	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
}

func TestAllowCarriesPartialRefill(t *testing.T) {
	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	l := NewTokenBucket(3, 2)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.1.1.1"))
	}
	assert.False(t, l.Allow("1.1.1.1"))

	// 45s earns one token and half of the next one.
	now = now.Add(45 * time.Second)
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))

	// The carried half plus 15s completes the second token.
	now = now.Add(15 * time.Second)
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
}

func TestAllowForgetsIdleClients(t *testing.T) {
	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 2)
	l.now = func() time.Time { return now }

	for _, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		assert.True(t, l.Allow(ip))
	}
	assert.Equal(t, 3, l.size())

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("4.4.4.4"))
	assert.Equal(t, 1, l.size())
}

func TestDisabledLimiter(t *testing.T) {
	l := NewTokenBucket(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k"))
	}
}

func TestMiddlewareReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/signin", NewTokenBucket(1, 1).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/auth/signin", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/auth/signin", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
}
