package permissions

import (
	"context"
	"fmt"
	"time"

	"relato/internal/models"
	"relato/internal/utils/logger"
)

// GrantedBySystem marks grants written by the registry itself.
const GrantedBySystem = "SYSTEM"

// Store is the persistence contract the registry needs: upsert-by-code
// for the catalog, replace-wholesale for grants, and two read queries.
type Store interface {
	Upsert(ctx context.Context, perm *models.Permission) error
	FindByCodes(ctx context.Context, codes []string) ([]models.Permission, error)
	ReplaceGrants(ctx context.Context, userID string, grants []models.UserPermission) error
	HasGrant(ctx context.Context, userID, code string) (bool, error)
	GrantedPermissions(ctx context.Context, userID string) ([]models.Permission, error)
}

// UserSource is the point lookup used by the company-scoping check.
type UserSource interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Registry owns the permission catalog and the role default map. It is
// constructed once in main and injected; there is no package-level
// instance.
type Registry struct {
	store    Store
	users    UserSource
	catalog  []CatalogEntry
	defaults map[models.Role][]string
	log      *logger.Logger
}

func NewRegistry(store Store, users UserSource) *Registry {
	return &Registry{
		store:    store,
		users:    users,
		catalog:  Catalog,
		defaults: RoleDefaults,
		log:      logger.New("PERMISSIONS"),
	}
}

// SyncCatalog upserts every catalog entry into the store. Idempotent
// and order-independent; runs once at process start. Errors propagate:
// a half-synced catalog must abort startup, not limp along.
func (r *Registry) SyncCatalog(ctx context.Context) error {
	for _, entry := range r.catalog {
		perm := &models.Permission{
			Code:        entry.Code,
			Name:        entry.Name,
			Description: entry.Description,
			Module:      entry.Module,
		}
		if err := r.store.Upsert(ctx, perm); err != nil {
			return fmt.Errorf("failed to sync permission %s: %w", entry.Code, err)
		}
	}
	r.log.Success("Synced %d permissions", len(r.catalog))
	return nil
}

// AssignDefaultPermissions replaces the user's grant set with the
// registry-resolved defaults for role. The delete and insert run in one
// store transaction so no concurrent check can see an empty set.
// Codes in the role map that are missing from the catalog are skipped.
func (r *Registry) AssignDefaultPermissions(ctx context.Context, userID string, role models.Role) error {
	codes, ok := r.defaults[role]
	if !ok {
		return fmt.Errorf("no default permissions for role %s", role)
	}

	perms, err := r.store.FindByCodes(ctx, codes)
	if err != nil {
		return fmt.Errorf("failed to resolve default permissions: %w", err)
	}
	if len(perms) < len(codes) {
		// Known design risk: a code in the role map that was never
		// synced is silently dropped from the grant set.
		r.log.Warn("Role %s maps %d codes but only %d exist in the registry", role, len(codes), len(perms))
	}

	now := time.Now()
	grants := make([]models.UserPermission, 0, len(perms))
	for _, perm := range perms {
		grants = append(grants, models.UserPermission{
			UserID:       userID,
			PermissionID: perm.ID,
			GrantedBy:    GrantedBySystem,
			GrantedAt:    now,
		})
	}

	if err := r.store.ReplaceGrants(ctx, userID, grants); err != nil {
		return fmt.Errorf("failed to replace grants for user %s: %w", userID, err)
	}
	return nil
}

// UserHasPermission reports whether an active grant joins an active
// permission with the given code.
func (r *Registry) UserHasPermission(ctx context.Context, userID, code string) (bool, error) {
	return r.store.HasGrant(ctx, userID, code)
}

// GetUserPermissions returns the user's currently granted, active
// permissions. Order is irrelevant.
func (r *Registry) GetUserPermissions(ctx context.Context, userID string) ([]models.Permission, error) {
	return r.store.GrantedPermissions(ctx, userID)
}

// UserCanAccessCompanyData is the company-scoping decision. ADMIN
// bypasses unconditionally; everyone else is confined to their own
// company. Fail-closed: any lookup error means no access.
func (r *Registry) UserCanAccessCompanyData(ctx context.Context, userID, companyID string) bool {
	user, err := r.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return false
	}
	if !user.Active {
		return false
	}
	if user.Role.BypassesCompanyScope() {
		return true
	}
	return user.CompanyID == companyID
}

// Defaults returns the configured default codes for a role, for
// admin-facing introspection.
func (r *Registry) Defaults(role models.Role) []string {
	return r.defaults[role]
}
