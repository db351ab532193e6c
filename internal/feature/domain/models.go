// Package domain contains persistence models for the feature gate.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Feature is a catalog entry. Companies hold their own grant rows; the
// catalog only names what can be granted.
type Feature struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Key          string       `gorm:"type:text;not null;uniqueIndex" json:"key"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	Description  string       `gorm:"type:text" json:"description,omitempty"`
	DefaultLimit *int         `json:"default_limit,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Feature) TableName() string { return "features" }

// CompanyFeature is a company's grant of one catalog feature. A nil
// UsageLimit means unmetered; a nil ExpiresAt means the grant never lapses.
type CompanyFeature struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_company_feature,priority:1" json:"company_id"`
	FeatureID    snowflake.ID `gorm:"not null;uniqueIndex:ux_company_feature,priority:2" json:"feature_id"`
	Enabled      bool         `gorm:"not null;default:true" json:"enabled"`
	UsageLimit   *int         `json:"usage_limit,omitempty"`
	CurrentUsage int          `gorm:"not null;default:0" json:"current_usage"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CompanyFeature) TableName() string { return "company_features" }

// Live reports whether the grant is enabled and unexpired at now.
func (cf *CompanyFeature) Live(now time.Time) bool {
	if !cf.Enabled {
		return false
	}
	return cf.ExpiresAt == nil || cf.ExpiresAt.After(now)
}

// FeatureUsageLog is the append-only consumption trail. Rows are written in
// the same transaction as the counter increment they describe.
type FeatureUsageLog struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID      `gorm:"not null;index" json:"company_id"`
	FeatureID snowflake.ID      `gorm:"not null;index" json:"feature_id"`
	Action    string            `gorm:"type:text;not null" json:"action"`
	Quantity  int               `gorm:"not null" json:"quantity"`
	UserID    *snowflake.ID     `gorm:"index" json:"user_id,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (FeatureUsageLog) TableName() string { return "feature_usage_logs" }
