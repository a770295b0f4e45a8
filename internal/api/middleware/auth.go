package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"relato/internal/api/response"
	"relato/internal/auth"
	"relato/internal/models"
	"relato/internal/utils/logger"
)

var log = logger.New("auth_middleware")

const principalKey = "principal"

// Principal is the resolved authentication context attached to every
// gated request.
type Principal struct {
	ID              string
	Email           string
	Name            string
	Role            models.Role
	CompanyID       string
	Company         *models.Company
	PermissionCodes map[string]struct{}
}

func (p *Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// HasPermission checks the code set resolved at authentication time.
// ADMIN holds every permission implicitly.
func (p *Principal) HasPermission(code string) bool {
	if p.IsAdmin() {
		return true
	}
	_, ok := p.PermissionCodes[code]
	return ok
}

// Codes returns the permission codes as a slice, for responses.
func (p *Principal) Codes() []string {
	codes := make([]string, 0, len(p.PermissionCodes))
	for code := range p.PermissionCodes {
		codes = append(codes, code)
	}
	return codes
}

// UserSource is the lookup the resolver uses to load the principal,
// including company and current grants.
type UserSource interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AuthMiddleware resolves the Authorization header into a Principal or
// terminates the request. Per-request state only; safe under unlimited
// concurrency.
type AuthMiddleware struct {
	tokens *auth.TokenService
	users  UserSource
}

func NewAuthMiddleware(tokens *auth.TokenService, users UserSource) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return response.Fail(c, http.StatusUnauthorized, response.CodeNoToken, "Missing authorization header")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return response.Fail(c, http.StatusUnauthorized, response.CodeNoToken, "Invalid authorization header format")
			}

			claims, err := m.tokens.Verify(tokenParts[1])
			if err != nil {
				return response.Fail(c, http.StatusUnauthorized, response.CodeInvalidToken, "Invalid or expired token")
			}

			user, err := m.users.FindByID(c.Request().Context(), claims.Subject)
			if err != nil {
				return response.Fail(c, http.StatusUnauthorized, response.CodeInvalidUser, "User not found")
			}
			if !user.Active {
				return response.Fail(c, http.StatusUnauthorized, response.CodeInvalidUser, "User is inactive")
			}

			codes := make(map[string]struct{}, len(user.Permissions))
			for _, grant := range user.Permissions {
				if grant.Permission != nil && grant.Permission.Active {
					codes[grant.Permission.Code] = struct{}{}
				}
			}

			c.Set(principalKey, &Principal{
				ID:              user.ID,
				Email:           user.Email,
				Name:            user.Name,
				Role:            user.Role,
				CompanyID:       user.CompanyID,
				Company:         user.Company,
				PermissionCodes: codes,
			})

			return next(c)
		}
	}
}

// GetPrincipal returns the resolved principal, or nil on ungated routes.
func GetPrincipal(c echo.Context) *Principal {
	if p, ok := c.Get(principalKey).(*Principal); ok {
		return p
	}
	return nil
}
