// Package domain contains persistence models for the identity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type UserKind string

const (
	KindCompanyAdmin      UserKind = "company_admin"
	KindBrandMember       UserKind = "brand_member"
	KindPlatformStaff     UserKind = "platform_staff"
	KindPlatformSuperuser UserKind = "platform_superuser"
)

// User is an authenticated principal. A user belongs to at most one company;
// platform users belong to none.
type User struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	IdentityKey string        `gorm:"type:text;not null;uniqueIndex:ux_users_identity_key" json:"-"`
	DisplayName string        `gorm:"type:text;not null" json:"display_name"`
	Kind        UserKind      `gorm:"type:text;not null;default:'brand_member'" json:"kind"`
	CompanyID   *snowflake.ID `gorm:"index" json:"company_id,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// IsPlatform reports whether the user operates above tenant boundaries.
func (u *User) IsPlatform() bool {
	return u.Kind == KindPlatformStaff || u.Kind == KindPlatformSuperuser
}

func (u *User) IsSuperuser() bool {
	return u.Kind == KindPlatformSuperuser
}
