package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"relato/internal/models"
)

// PermissionStore persists the permission catalog and user grants.
// Catalog writes are upsert-only; grants are replaced wholesale.
type PermissionStore struct {
	db *gorm.DB
}

func NewPermissionStore(db *gorm.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

// Upsert creates the permission or, on a code conflict, updates the
// mutable fields and reactivates it. Never deletes.
func (s *PermissionStore) Upsert(ctx context.Context, perm *models.Permission) error {
	perm.Active = true
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "module", "active", "updated_at"}),
		}).
		Create(perm).Error
}

// FindByCodes returns the active permissions matching the given codes.
// Codes absent from the catalog are simply not in the result.
func (s *PermissionStore) FindByCodes(ctx context.Context, codes []string) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.db.WithContext(ctx).
		Where("code IN ? AND active = ?", codes, true).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// ReplaceGrants deletes every grant the user holds and inserts the new
// set in one transaction, so a concurrent permission check can never
// observe the empty in-between state.
func (s *PermissionStore) ReplaceGrants(ctx context.Context, userID string, grants []models.UserPermission) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserPermission{}).Error; err != nil {
			return err
		}
		if len(grants) == 0 {
			return nil
		}
		return tx.CreateInBatches(&grants, 100).Error
	})
}

// HasGrant reports whether an active grant joins an active permission
// with the given code.
func (s *PermissionStore) HasGrant(ctx context.Context, userID, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.UserPermission{}).
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ? AND permissions.code = ? AND permissions.active = ?", userID, code, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GrantedPermissions returns every active permission currently granted
// to the user. Order is not meaningful.
func (s *PermissionStore) GrantedPermissions(ctx context.Context, userID string) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.db.WithContext(ctx).
		Model(&models.Permission{}).
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ? AND permissions.active = ?", userID, true).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}
