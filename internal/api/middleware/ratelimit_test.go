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

	"relato/internal/config"
	"relato/internal/models"
	"relato/internal/ratelimit"
)

func newLimitedEcho(t *testing.T, tier ratelimit.Tier, principal *Principal) *echo.Echo {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	e := echo.New()
	attach := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if principal != nil {
				c.Set(principalKey, principal)
			}
			return next(c)
		}
	}
	e.GET("/gated", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, attach, RateLimit(ratelimit.New(client), tier))
	return e
}

func hit(e *echo.Echo) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/gated", nil)
	req.RemoteAddr = "10.0.0.1:4321"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTierRejectsOverCeiling(t *testing.T) {
	tier := ratelimit.Tier{Name: "critical", Code: "CRITICAL_RATE_LIMIT", Window: 5 * time.Minute, Max: 3}
	e := newLimitedEcho(t, tier, nil)

	for i := 0; i < tier.Max; i++ {
		rec := hit(e)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := hit(e)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "CRITICAL_RATE_LIMIT", env.Code)
	assert.False(t, env.Success)
}

func TestTierSetsQuotaHeaders(t *testing.T) {
	tier := ratelimit.Tier{Name: "general", Code: "RATE_LIMIT_EXCEEDED", Window: 15 * time.Minute, Max: 100}
	e := newLimitedEcho(t, tier, nil)

	rec := hit(e)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestAdminSkipsTier(t *testing.T) {
	tier := ratelimit.Tier{Name: "critical", Code: "CRITICAL_RATE_LIMIT", Window: 5 * time.Minute, Max: 1}
	admin := &Principal{ID: "a1", Role: models.RoleAdmin}
	e := newLimitedEcho(t, tier, admin)

	for i := 0; i < 10; i++ {
		rec := hit(e)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"), "admin requests are not counted")
	}
}

func TestNonAdminPrincipalIsLimited(t *testing.T) {
	tier := ratelimit.Tier{Name: "critical", Code: "CRITICAL_RATE_LIMIT", Window: 5 * time.Minute, Max: 1}
	op := &Principal{ID: "u1", Role: models.RoleOperator}
	e := newLimitedEcho(t, tier, op)

	require.Equal(t, http.StatusOK, hit(e).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(e).Code)
}

func TestBackendOutageDegradesOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tier := ratelimit.Tier{Name: "general", Code: "RATE_LIMIT_EXCEEDED", Window: time.Minute, Max: 1}

	e := echo.New()
	e.GET("/gated", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RateLimit(ratelimit.New(client), tier))

	mr.Close()
	rec := hit(e)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSlowdownPassesThroughUnderThreshold(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.RateLimitConfig{
		SlowdownWindow:    time.Minute,
		SlowdownThreshold: 100,
		SlowdownStep:      time.Second,
		SlowdownMax:       time.Second,
	}
	e := echo.New()
	e.GET("/gated", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, Slowdown(ratelimit.NewSlowdown(client, cfg)))

	start := time.Now()
	rec := hit(e)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
