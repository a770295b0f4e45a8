package models

import (
	"gorm.io/datatypes"
)

// Company scopes non-admin data access. TaxID is the fiscal identifier
// the reporting side prints on exports.
type Company struct {
	Base
	Name   string `gorm:"not null" json:"name" validate:"required,min=2"`
	TaxID  string `gorm:"uniqueIndex;not null" json:"taxId" validate:"required"`
	Active bool   `gorm:"not null;default:true" json:"active"`
	Users  []User `gorm:"foreignKey:CompanyID;references:ID" json:"users,omitempty"`
}

type User struct {
	Base
	Email       string           `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	Password    string           `gorm:"not null" json:"-"`
	Name        string           `gorm:"not null" json:"name" validate:"required,min=2"`
	Role        Role             `gorm:"not null;default:'OPERATOR'" json:"role" validate:"required,user_role"`
	CompanyID   string           `gorm:"type:uuid;not null" json:"companyId" validate:"required,uuid"`
	Company     *Company         `json:"company,omitempty"`
	Active      bool             `gorm:"not null;default:true" json:"active"`
	Permissions []UserPermission `gorm:"foreignKey:UserID" json:"permissions,omitempty"`
}

// LoginAudit records one login attempt. Rows are purged by the
// retention task; nothing in the auth path ever reads them back.
// UserID is nil when the attempted email matches no account, so those
// rows must insert NULL rather than an empty uuid.
type LoginAudit struct {
	Base
	UserID    *string        `gorm:"type:uuid;index" json:"userId,omitempty"`
	Email     string         `gorm:"index" json:"email"`
	IPAddress string         `json:"ipAddress"`
	UserAgent string         `json:"userAgent"`
	Succeeded bool           `gorm:"not null" json:"succeeded"`
	Detail    datatypes.JSON `gorm:"type:jsonb" json:"detail,omitempty"`
}
