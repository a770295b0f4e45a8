package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// Role is the closed set of user roles. Adding a role requires touching
// every scoping switch; keep the set small on purpose.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleOperator   Role = "OPERATOR"
)

// Roles lists every valid role, in privilege order.
var Roles = []Role{RoleAdmin, RoleSupervisor, RoleOperator}

// IsValidRole checks if a given role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleOperator:
		return true
	default:
		return false
	}
}

// BypassesCompanyScope reports whether the role sees data across all
// companies. Exhaustive on purpose: a new role must decide explicitly.
func (r Role) BypassesCompanyScope() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleSupervisor, RoleOperator:
		return false
	default:
		return false
	}
}
