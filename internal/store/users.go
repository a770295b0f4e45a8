package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"relato/internal/models"
)

// ErrNotFound is returned for point lookups that match no row.
var ErrNotFound = errors.New("not found")

// UserRepository is the point-lookup collaborator the security core
// consumes. It never writes users; role updates go through Update.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID loads a user with company and current permission grants.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Company").
		Preload("Permissions.Permission").
		Where("id = ?", id).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads a user for the credential check at login.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("email = ?", email).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByCompany returns the active users of one company.
func (r *UserRepository) ListByCompany(ctx context.Context, companyID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND active = ?", companyID, true).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateRole changes the user's role. Grant replacement is the
// registry's job and happens separately.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
