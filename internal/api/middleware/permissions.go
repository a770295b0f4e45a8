package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"relato/internal/api/response"
)

// CompanyScope is the fail-closed scoping decision, satisfied by the
// permission registry.
type CompanyScope interface {
	UserCanAccessCompanyData(ctx context.Context, userID, companyID string) bool
}

// RequirePermission gates a route on one permission code from the
// resolved context. ADMIN passes unconditionally.
func RequirePermission(code string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := GetPrincipal(c)
			if principal == nil {
				return response.Fail(c, http.StatusUnauthorized, response.CodeNoToken, "Authentication required")
			}
			if !principal.HasPermission(code) {
				return response.Fail(c, http.StatusForbidden, response.CodeForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}

// RequireCompanyAccess gates a route carrying a company id path param.
// Any resolution failure denies access.
func RequireCompanyAccess(scope CompanyScope, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := GetPrincipal(c)
			if principal == nil {
				return response.Fail(c, http.StatusUnauthorized, response.CodeNoToken, "Authentication required")
			}
			companyID := c.Param(param)
			if companyID == "" {
				return response.Fail(c, http.StatusForbidden, response.CodeCompanyAccessDenied, "Company not specified")
			}
			if !scope.UserCanAccessCompanyData(c.Request().Context(), principal.ID, companyID) {
				return response.Fail(c, http.StatusForbidden, response.CodeCompanyAccessDenied, "No access to this company's data")
			}
			return next(c)
		}
	}
}
