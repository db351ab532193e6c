// Package authz decides what an authenticated, scope-resolved request may
// do. Structural rules run as a predicate chain; named roles run through a
// casbin enforcer backed by the user_roles table.
package authz

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UserRole is a named role assignment. CompanyID and BrandID narrow where
// the role applies; nil means platform-wide. Expired rows are ignored, not
// deleted.
type UserRole struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_user_role_scope,priority:1" json:"user_id"`
	Role      string        `gorm:"type:text;not null;uniqueIndex:ux_user_role_scope,priority:2" json:"role"`
	CompanyID *snowflake.ID `gorm:"index;uniqueIndex:ux_user_role_scope,priority:3" json:"company_id,omitempty"`
	BrandID   *snowflake.ID `gorm:"index" json:"brand_id,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (UserRole) TableName() string { return "user_roles" }

// Live reports whether the assignment is unexpired at now.
func (ur *UserRole) Live(now time.Time) bool {
	return ur.ExpiresAt == nil || ur.ExpiresAt.After(now)
}

// AppliesTo reports whether the assignment covers the given company scope.
func (ur *UserRole) AppliesTo(companyID snowflake.ID) bool {
	return ur.CompanyID == nil || *ur.CompanyID == companyID
}
