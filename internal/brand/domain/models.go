// Package domain contains persistence models for the brand service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Brand is the innermost tenant unit. Every scoped resource resolves to
// exactly one brand through its brand path descriptor.
type Brand struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_brands_company_name,priority:1" json:"company_id"`
	Name        string        `gorm:"type:text;not null;uniqueIndex:ux_brands_company_name,priority:2" json:"name"`
	Slug        string        `gorm:"type:text;not null" json:"slug"`
	AdminUserID *snowflake.ID `gorm:"index" json:"admin_user_id,omitempty"`
	IsActive    bool          `gorm:"not null;default:true" json:"is_active"`
	IsDeleted   bool          `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Brand) TableName() string { return "brands" }

// BrandMember links a company user into a brand.
type BrandMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BrandID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_brand_user,priority:1" json:"brand_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_brand_user,priority:2" json:"user_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BrandMember) TableName() string { return "brand_members" }
