package routes

import (
	"github.com/labstack/echo/v4"

	"relato/internal/api/middleware"
	"relato/internal/handlers"
	"relato/internal/permissions"
	"relato/internal/ratelimit"
)

// Deps bundles everything route registration needs. Built once in the
// server constructor.
type Deps struct {
	Auth     *handlers.AuthHandler
	Users    *handlers.UserHandler
	AuthMW   *middleware.AuthMiddleware
	Limiter  *ratelimit.Limiter
	Slowdown *ratelimit.Slowdown
	General  ratelimit.Tier
	Critical ratelimit.Tier
	Registry *permissions.Registry
}

// Setup wires up the gated API surface. Slowdown runs ahead of
// authentication; the hard tiers run after it so the ADMIN bypass can
// see the resolved principal. The login tier is enforced inside the
// login handler, where success and failure must count differently.
func Setup(e *echo.Echo, d Deps) {
	base := e.Group("/api/v1")
	base.Use(middleware.Slowdown(d.Slowdown))

	// Public auth routes
	auth := base.Group("/auth")
	auth.POST("/login", d.Auth.Login)

	// Everything below requires a resolved principal
	gated := base.Group("", d.AuthMW.Middleware(), middleware.RateLimit(d.Limiter, d.General))

	gated.GET("/auth/me", d.Auth.GetMe)

	users := gated.Group("/users")
	users.GET("/roles", d.Users.ListRoleDefaults,
		middleware.RequirePermission("USERS_READ"))
	users.POST("/:id/role", d.Users.AssignRole,
		middleware.RequirePermission("USERS_WRITE"),
		middleware.RateLimit(d.Limiter, d.Critical))

	companies := gated.Group("/companies/:companyId",
		middleware.RequireCompanyAccess(d.Registry, "companyId"))
	companies.GET("/users", d.Users.ListCompanyUsers,
		middleware.RequirePermission("USERS_READ"))
}
