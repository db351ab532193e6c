// Package domain contains persistence models for usage alerts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AlertStatus string

const (
	StatusActive    AlertStatus = "active"
	StatusResolved  AlertStatus = "resolved"
	StatusDismissed AlertStatus = "dismissed"
)

// Alert kinds emitted by the slot ledger and the feature gate.
const (
	KindBrandsWarning       = "brands_warning"
	KindBrandsLimitReached  = "brands_limit_reached"
	KindUsersWarning        = "users_warning"
	KindUsersLimitReached   = "users_limit_reached"
	KindFeatureWarning      = "feature_warning"
	KindFeatureLimitReached = "feature_limit_reached"
	KindInvariantViolation  = "invariant_violation"
)

// UsageAlert records a crossed utilization threshold. A partial unique
// index holds at most one active alert per (company, kind).
type UsageAlert struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID      snowflake.ID `gorm:"not null;index:ix_usage_alerts_company_kind,priority:1;uniqueIndex:ux_usage_alerts_active,priority:1,where:status = 'active'" json:"company_id"`
	Kind           string       `gorm:"type:text;not null;index:ix_usage_alerts_company_kind,priority:2;uniqueIndex:ux_usage_alerts_active,priority:2,where:status = 'active'" json:"kind"`
	ThresholdValue float64      `gorm:"not null" json:"threshold_value"`
	CurrentValue   float64      `gorm:"not null" json:"current_value"`
	Message        string       `gorm:"type:text;not null" json:"message"`
	Status         AlertStatus  `gorm:"type:text;not null;default:'active'" json:"status"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
}

// TableName sets the database table name.
func (UsageAlert) TableName() string { return "usage_alerts" }
