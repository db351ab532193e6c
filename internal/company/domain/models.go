// Package domain contains persistence models for the company service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Company is the outer tenant. It owns brands, users, slots and features.
type Company struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Name             string       `gorm:"type:text;not null" json:"name"`
	AdminUserID      snowflake.ID `gorm:"not null;uniqueIndex" json:"admin_user_id"`
	BillingEmail     string       `gorm:"type:text" json:"billing_email"`
	TrialExpiresAt   *time.Time   `json:"trial_expires_at,omitempty"`
	StripeCustomerID *string      `gorm:"type:text" json:"-"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }
