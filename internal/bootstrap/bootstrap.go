package bootstrap

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"relato/internal/models"
	"relato/internal/permissions"
	console "relato/internal/utils/logger"
)

var log = console.New("BOOTSTRAP")

// EnsureAdminFromEnv creates the first ADMIN user (and its company)
// from ADMIN_EMAIL / ADMIN_PASSWORD / ADMIN_NAME / ADMIN_COMPANY_NAME /
// ADMIN_COMPANY_TAX_ID when no admin exists yet. Run after the catalog
// sync so the default grants resolve.
func EnsureAdminFromEnv(ctx context.Context, db *gorm.DB, registry *permissions.Registry) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	email, ok := os.LookupEnv("ADMIN_EMAIL")
	if !ok {
		return fmt.Errorf("ADMIN_EMAIL not set")
	}
	password, ok := os.LookupEnv("ADMIN_PASSWORD")
	if !ok {
		return fmt.Errorf("ADMIN_PASSWORD not set")
	}
	name, ok := os.LookupEnv("ADMIN_NAME")
	if !ok {
		return fmt.Errorf("ADMIN_NAME not set")
	}
	companyName, ok := os.LookupEnv("ADMIN_COMPANY_NAME")
	if !ok {
		return fmt.Errorf("ADMIN_COMPANY_NAME not set")
	}
	taxID, ok := os.LookupEnv("ADMIN_COMPANY_TAX_ID")
	if !ok {
		return fmt.Errorf("ADMIN_COMPANY_TAX_ID not set")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	company := models.Company{
		Name:   companyName,
		TaxID:  taxID,
		Active: true,
	}
	if err := db.WithContext(ctx).Create(&company).Error; err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	user := models.User{
		Email:     email,
		Password:  string(hashedPassword),
		Name:      name,
		Role:      models.RoleAdmin,
		CompanyID: company.ID,
		Active:    true,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if err := registry.AssignDefaultPermissions(ctx, user.ID, models.RoleAdmin); err != nil {
		return fmt.Errorf("failed to grant admin defaults: %w", err)
	}

	log.Success("Created bootstrap admin %s", email)
	return nil
}
