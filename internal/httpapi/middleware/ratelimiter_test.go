package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRateLimiterTestRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(OwnerHeader(), rl.Middleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func startRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRateLimiter_AllowsUnderLimitThenBlocks(t *testing.T) {
	addr := startRedisContainer(t)

	rl := NewRateLimiter(addr, 2, time.Minute)
	defer func() { _ = rl.Close() }()
	r := newRateLimiterTestRouter(rl)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(OwnerHeaderName, "owner-1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(OwnerHeaderName, "owner-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiter_SeparateOwnersHaveSeparateWindows(t *testing.T) {
	addr := startRedisContainer(t)

	rl := NewRateLimiter(addr, 1, time.Minute)
	defer func() { _ = rl.Close() }()
	r := newRateLimiterTestRouter(rl)

	for _, owner := range []string{"owner-1", "owner-2"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(OwnerHeaderName, owner)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
