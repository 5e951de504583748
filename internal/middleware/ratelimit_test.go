package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled limiter admits everything", func(t *testing.T) {
		l := NewRateLimiter(nil, false)
		for i := 0; i < 5; i++ {
			allowed, err := l.Allow(ctx, "login", "ip:1", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
	})

	t.Run("nil redis is an error", func(t *testing.T) {
		l := NewRateLimiter(nil, true)
		allowed, err := l.Allow(ctx, "login", "ip:1", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("counts within window", func(t *testing.T) {
		rdb, mr := newMiniredisClient(t)
		l := NewRateLimiter(rdb, true)

		for i := 0; i < 2; i++ {
			allowed, err := l.Allow(ctx, "login", "ip:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := l.Allow(ctx, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, mr.TTL("rl:login:ip:1"))

		mr.FastForward(2 * time.Minute)
		allowed, err = l.Allow(ctx, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("counter without expiry gets a window", func(t *testing.T) {
		rdb, mr := newMiniredisClient(t)
		l := NewRateLimiter(rdb, true)
		require.NoError(t, mr.Set("rl:login:ip:9", "50"))

		allowed, err := l.Allow(ctx, "login", "ip:9", 10, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, mr.TTL("rl:login:ip:9"))

		mr.FastForward(2 * time.Minute)
		allowed, err = l.Allow(ctx, "login", "ip:9", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("window is not extended by later hits", func(t *testing.T) {
		rdb, mr := newMiniredisClient(t)
		l := NewRateLimiter(rdb, true)

		_, err := l.Allow(ctx, "login", "ip:2", 5, time.Minute)
		require.NoError(t, err)
		mr.FastForward(40 * time.Second)
		_, err = l.Allow(ctx, "login", "ip:2", 5, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 20*time.Second, mr.TTL("rl:login:ip:2"))
	})
}

func TestRateLimiter_Limit(t *testing.T) {
	rdb, mr := newMiniredisClient(t)
	l := NewRateLimiter(rdb, true)

	app := fiber.New()
	app.Post("/open", l.Limit("open", 1, time.Minute, FailOpen), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/closed", l.Limit("closed", 1, time.Minute, FailClosed), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	status := func(path string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, path, nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, status("/open"))
	assert.Equal(t, http.StatusTooManyRequests, status("/open"))

	mr.Close()
	assert.Equal(t, http.StatusOK, status("/open"), "fail open when the store is down")
	assert.Equal(t, http.StatusServiceUnavailable, status("/closed"))
}
