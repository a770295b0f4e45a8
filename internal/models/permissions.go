package models

import "time"

// Permission is one row of the catalog. Rows are created and updated
// only by the registry sync, which upserts and reactivates but never
// deletes; codes dropped from the catalog keep their rows as-is.
type Permission struct {
	Base
	Code        string `gorm:"uniqueIndex;not null" json:"code"` // e.g. "FRI_READ"
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Module      string `gorm:"index;not null" json:"module"` // e.g. "fri", "users"
	Active      bool   `gorm:"not null;default:true" json:"active"`
}

// UserPermission is one grant. A user's grant set is replaced wholesale
// on every role (re)assignment, never merged.
type UserPermission struct {
	Base
	UserID       string      `gorm:"type:uuid;not null;index" json:"userId"`
	User         *User       `json:"user,omitempty"`
	PermissionID string      `gorm:"type:uuid;not null" json:"permissionId"`
	Permission   *Permission `json:"permission,omitempty"`
	GrantedBy    string      `gorm:"not null" json:"grantedBy"`
	GrantedAt    time.Time   `gorm:"not null" json:"grantedAt"`
}
