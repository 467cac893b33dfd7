package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func do(e *echo.Echo, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRedisCacheHitAndMiss(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "path_query", Prefix: "cache",
	}
	calls := 0
	e := echo.New()
	e.GET("/v1/halls/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
	}, NewRedisCache(cfg, rdb))

	first := do(e, http.MethodGet, "/v1/halls/1", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "public, max-age=60", first.Header().Get("Cache-Control"))

	second := do(e, http.MethodGet, "/v1/halls/1", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	// a different id must not be served from the first entry
	other := do(e, http.MethodGet, "/v1/halls/2", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Contains(t, other.Body.String(), `"2"`)
	assert.Equal(t, 2, calls)

	mr.FastForward(2 * time.Minute)
	expired := do(e, http.MethodGet, "/v1/halls/1", nil)
	assert.Equal(t, "MISS", expired.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestRedisCacheSkipsErrorsAndAuthorizedRequests(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}
	calls := 0
	e := echo.New()
	e.GET("/missing", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}, NewRedisCache(cfg, rdb))
	e.GET("/private", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}, NewRedisCache(cfg, rdb))

	do(e, http.MethodGet, "/missing", nil)
	do(e, http.MethodGet, "/missing", nil)
	assert.Equal(t, 2, calls)

	auth := map[string]string{"Authorization": "Bearer x"}
	rec := do(e, http.MethodGet, "/private", auth)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	do(e, http.MethodGet, "/private", auth)
	assert.Equal(t, 4, calls)
}

func TestRedisCacheSkipsOversizedBodies(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		Prefix: "cache", MaxBodyBytes: 4,
	}
	e := echo.New()
	e.GET("/big", func(c echo.Context) error { return c.String(http.StatusOK, "0123456789") }, NewRedisCache(cfg, rdb))

	rec := do(e, http.MethodGet, "/big", nil)
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.Empty(t, mr.Keys())
}

func TestRedisCacheDisabledWithoutClient(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: true}, nil)
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, mw)
	rec := do(e, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestTokenBucketBlocksWhenEmpty(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 5 * time.Hour, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.POST("/v1/bookings", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewTokenBucket(cfg, rdb))

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/v1/bookings", nil).Code)
	rec := do(e, http.MethodPost, "/v1/bookings", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	blocked := do(e, http.MethodPost, "/v1/bookings", nil)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/", nil).Code)
	}
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	const secret = "test-secret"
	e := echo.New()
	var seen model.Caller
	g := e.Group("/admin", JWTAuth(secret), RequireRole(model.RoleAdmin))
	g.GET("/ping", func(c echo.Context) error {
		seen = CallerFrom(c)
		return c.NoContent(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/admin/ping", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(e, http.MethodGet, "/admin/ping", map[string]string{"Authorization": "Bearer garbage"}).Code)

	customer, err := utils.NewAccessToken(secret, 5, model.RoleCustomer, 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden,
		do(e, http.MethodGet, "/admin/ping", map[string]string{"Authorization": "Bearer " + customer.Token}).Code)

	admin, err := utils.NewAccessToken(secret, 9, model.RoleAdmin, 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK,
		do(e, http.MethodGet, "/admin/ping", map[string]string{"Authorization": "Bearer " + admin.Token}).Code)
	assert.Equal(t, model.Caller{UserID: 9, Role: model.RoleAdmin}, seen)
}
