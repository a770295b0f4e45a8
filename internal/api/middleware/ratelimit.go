package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"relato/internal/api/response"
	"relato/internal/ratelimit"
)

// RateLimit gates a route group on one hard tier, keyed by client IP.
// ADMIN principals skip the tier entirely, counters included; this only
// applies where the auth resolver has already run. A backend outage
// degrades open with a warning, the sole exception being the login
// tier, which is enforced inside the login handler and fails closed.
func RateLimit(limiter *ratelimit.Limiter, tier ratelimit.Tier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p := GetPrincipal(c); p != nil && p.IsAdmin() {
				return next(c)
			}

			res, err := limiter.Allow(c.Request().Context(), tier, c.RealIP())
			if err != nil {
				log.Warn("Rate limit check failed for tier %s: %v", tier.Name, err)
				return next(c)
			}

			SetQuotaHeaders(c, res)
			if !res.Allowed {
				return response.Fail(c, http.StatusTooManyRequests, tier.Code, "Too many requests, try again later")
			}
			return next(c)
		}
	}
}

// Slowdown applies the adaptive delay layer, keyed by client IP. It
// never rejects; above the soft threshold each request is held a bit
// longer, up to the cap. It mounts ahead of authentication, so unlike
// the hard tiers there is no principal to grant a bypass to.
func Slowdown(s *ratelimit.Slowdown) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			delay, err := s.Delay(c.Request().Context(), c.RealIP())
			if err != nil {
				log.Warn("Slowdown check failed: %v", err)
				return next(c)
			}
			if err := ratelimit.Sleep(c.Request().Context(), delay); err != nil {
				// Client went away while we were holding the request.
				return err
			}
			return next(c)
		}
	}
}

// SetQuotaHeaders writes the standard quota headers on the response.
func SetQuotaHeaders(c echo.Context, res ratelimit.Result) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}
