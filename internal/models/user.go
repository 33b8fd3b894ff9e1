package models

import (
	"time"
)

// Role gates what an account may do
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleInternal Role = "internal"
	RolePortal   Role = "portal"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInternal, RolePortal:
		return true
	}
	return false
}

// IsStaff reports whether r is an admin or internal role
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleInternal
}

// User is an account. Accounts are never deleted, only deactivated.
type User struct {
	BaseModel

	Email          string `json:"email" gorm:"size:255;uniqueIndex;not null"`
	HashedPassword string `json:"-" gorm:"size:255;not null"`
	FullName       string `json:"full_name" gorm:"size:255"`
	Phone          string `json:"phone" gorm:"size:50"`
	Company        string `json:"company" gorm:"size:255"`
	Role           Role   `json:"role" gorm:"size:20;not null;index"`
	IsActive       bool   `json:"is_active" gorm:"not null;index"`
	AuthProvider   string `json:"auth_provider,omitempty" gorm:"size:50"` // set when the account was created by an external identity provider

	// Password reset
	ResetToken       *string    `json:"-" gorm:"size:64;index"`
	ResetTokenExpiry *time.Time `json:"-"`
}

// TableName keeps clear of the reserved word "user" in PostgreSQL
func (User) TableName() string {
	return "users"
}
