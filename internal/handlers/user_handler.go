package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"relato/internal/api/response"
	"relato/internal/models"
	"relato/internal/store"
	"relato/internal/utils/logger"
)

// RoleUpdater writes the new role to the user record.
type RoleUpdater interface {
	UpdateRole(ctx context.Context, id string, role models.Role) error
	ListByCompany(ctx context.Context, companyID string) ([]models.User, error)
}

// GrantAssigner replaces a user's grants with the role defaults and
// exposes the default map for introspection.
type GrantAssigner interface {
	AssignDefaultPermissions(ctx context.Context, userID string, role models.Role) error
	Defaults(role models.Role) []string
}

type UserHandler struct {
	users    RoleUpdater
	registry GrantAssigner
	log      *logger.Logger
}

func NewUserHandler(users RoleUpdater, registry GrantAssigner) *UserHandler {
	return &UserHandler{
		users:    users,
		registry: registry,
		log:      logger.New("UserHandler"),
	}
}

type AssignRoleRequest struct {
	Role models.Role `json:"role" validate:"required,user_role"`
}

// AssignRole changes a user's role and replaces their grants with the
// role defaults. Routed behind ADMIN and the critical rate tier.
func (h *UserHandler) AssignRole(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return response.Fail(c, http.StatusBadRequest, response.CodeValidationError, "User id is required")
	}

	var req AssignRoleRequest
	if err := c.Bind(&req); err != nil {
		return response.Fail(c, http.StatusBadRequest, response.CodeValidationError, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return response.Fail(c, http.StatusBadRequest, response.CodeValidationError, err.Error())
	}

	ctx := c.Request().Context()

	if err := h.users.UpdateRole(ctx, userID, req.Role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.Fail(c, http.StatusNotFound, response.CodeInvalidUser, "User not found")
		}
		return h.log.Error("Failed to update role", err)
	}

	if err := h.registry.AssignDefaultPermissions(ctx, userID, req.Role); err != nil {
		// Role is persisted but grants were not replaced; propagate so
		// the admin retries instead of leaving it half-applied quietly.
		return h.log.Error("Failed to assign default permissions", err)
	}

	h.log.Success("Assigned role %s to user %s", req.Role, userID)
	return response.OK(c, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"role":   req.Role,
	})
}

// ListRoleDefaults returns every role with the permission codes a role
// assignment would grant, for admin tooling.
func (h *UserHandler) ListRoleDefaults(c echo.Context) error {
	defaults := make(map[string][]string, len(models.Roles))
	for _, role := range models.Roles {
		defaults[string(role)] = h.registry.Defaults(role)
	}
	return response.OK(c, http.StatusOK, defaults)
}

// ListCompanyUsers lists the users of one company. Routed behind the
// company-scoping guard, so a non-admin only ever reaches their own.
func (h *UserHandler) ListCompanyUsers(c echo.Context) error {
	companyID := c.Param("companyId")

	users, err := h.users.ListByCompany(c.Request().Context(), companyID)
	if err != nil {
		return h.log.Error("Failed to list company users", err)
	}
	return response.OK(c, http.StatusOK, users)
}
