package models

import (
	"fmt"
	"time"
)

// Admin roles. Exactly one role is the permission-check superset.
const (
	RoleSuperAdmin = "super-admin"
	RoleAdmin      = "admin"
	RoleModerator  = "moderator"
)

// Capability names an admin permission. The set is closed; gate checks on
// anything else are a programming error.
type Capability string

const (
	CapManageUsers   Capability = "canManageUsers"
	CapManagePosts   Capability = "canManagePosts"
	CapManageAdmins  Capability = "canManageAdmins"
	CapViewAnalytics Capability = "canViewAnalytics"
)

type Permissions struct {
	CanManageUsers   bool `json:"canManageUsers"`
	CanManagePosts   bool `json:"canManagePosts"`
	CanManageAdmins  bool `json:"canManageAdmins"`
	CanViewAnalytics bool `json:"canViewAnalytics"`
}

// DefaultPermissions matches what a newly created admin gets when the
// creator doesn't specify a permission set.
func DefaultPermissions() Permissions {
	return Permissions{
		CanManageUsers:   true,
		CanManagePosts:   true,
		CanManageAdmins:  false,
		CanViewAnalytics: true,
	}
}

type Admin struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Username    string      `gorm:"uniqueIndex;not null" json:"username"`
	Email       string      `gorm:"uniqueIndex;not null" json:"email"`
	Password    string      `gorm:"not null" json:"-"` // Hash
	Role        string      `gorm:"size:20;default:'admin';not null" json:"role"`
	Permissions Permissions `gorm:"embedded" json:"permissions"`
	IsActive    bool        `json:"is_active"`
	LastLogin   *time.Time  `json:"last_login"`
	CreatedByID *uint       `json:"created_by_id"`
	CreatedBy   *Admin      `json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Can reports whether the admin holds the capability. A super-admin passes
// every check through this single gate.
func (a *Admin) Can(cap Capability) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	switch cap {
	case CapManageUsers:
		return a.Permissions.CanManageUsers
	case CapManagePosts:
		return a.Permissions.CanManagePosts
	case CapManageAdmins:
		return a.Permissions.CanManageAdmins
	case CapViewAnalytics:
		return a.Permissions.CanViewAnalytics
	default:
		panic(fmt.Sprintf("unknown capability: %s", cap))
	}
}
