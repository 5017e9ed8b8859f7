package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"lastseat/server/internal/api/middleware"
	"lastseat/server/internal/config"
)

func rateLimitedRouter(cfg *config.Config, markHuman bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	rm := middleware.NewRateLimiterMiddleware(cfg)

	r := gin.New()
	if markHuman {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextKeyIsHumanVerified, true)
			c.Next()
		})
	}
	r.Use(rm.Limit())
	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	return r
}

func hitPing(r *gin.Engine) int {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.1.2.3:5000"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_SoftLimitDemandsCaptcha(t *testing.T) {
	cfg := &config.Config{
		RateLimitSoftBucketSize: 2,
		RateLimitSoftRefillRate: 0,
		RateLimitHardBucketSize: 100,
		RateLimitHardRefillRate: 0,
	}
	r := rateLimitedRouter(cfg, false)

	assert.Equal(t, http.StatusOK, hitPing(r))
	assert.Equal(t, http.StatusOK, hitPing(r))
	// Soft bucket exhausted: anonymous clients are asked to prove humanity.
	assert.Equal(t, http.StatusTeapot, hitPing(r))
}

func TestRateLimiter_VerifiedHumanSkipsSoftLimit(t *testing.T) {
	cfg := &config.Config{
		RateLimitSoftBucketSize: 1,
		RateLimitSoftRefillRate: 0,
		RateLimitHardBucketSize: 100,
		RateLimitHardRefillRate: 0,
	}
	r := rateLimitedRouter(cfg, true)

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, hitPing(r))
	}
}

func TestRateLimiter_HardLimitStopsEveryone(t *testing.T) {
	cfg := &config.Config{
		RateLimitSoftBucketSize: 100,
		RateLimitSoftRefillRate: 0,
		RateLimitHardBucketSize: 3,
		RateLimitHardRefillRate: 0,
	}
	// Even verified humans hit the hard ceiling.
	r := rateLimitedRouter(cfg, true)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hitPing(r))
	}
	assert.Equal(t, http.StatusTooManyRequests, hitPing(r))
}

func TestRateLimiter_SeparateClientsSeparateBuckets(t *testing.T) {
	cfg := &config.Config{
		RateLimitSoftBucketSize: 1,
		RateLimitSoftRefillRate: 0,
		RateLimitHardBucketSize: 100,
		RateLimitHardRefillRate: 0,
	}
	r := rateLimitedRouter(cfg, false)

	hit := func(fingerprint string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.1.2.3:5000"
		req.Header.Set("X-BFP", fingerprint)
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("browser-a"))
	assert.Equal(t, http.StatusTeapot, hit("browser-a"))
	// A different fingerprint gets a fresh bucket.
	assert.Equal(t, http.StatusOK, hit("browser-b"))
}
