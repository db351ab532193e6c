// Package domain contains persistence models for the slot ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ResourceKind names a counted resource.
type ResourceKind string

const (
	KindBrands ResourceKind = "brands"
	KindUsers  ResourceKind = "users"
)

// Slots holds the per-company capacity counters. current_X_count must never
// exceed X_slots after a committed mutation, and both counters are
// re-derivable from the brand and user tables via Reconcile.
type Slots struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID          snowflake.ID `gorm:"not null;uniqueIndex:ux_slots_company" json:"company_id"`
	BrandsSlots        int          `gorm:"not null;default:0" json:"brands_slots"`
	UsersSlots         int          `gorm:"not null;default:0" json:"users_slots"`
	CurrentBrandsCount int          `gorm:"not null;default:0" json:"current_brands_count"`
	CurrentUsersCount  int          `gorm:"not null;default:0" json:"current_users_count"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Slots) TableName() string { return "slots" }

// Limit returns the configured capacity for kind.
func (s *Slots) Limit(kind ResourceKind) int {
	if kind == KindUsers {
		return s.UsersSlots
	}
	return s.BrandsSlots
}

// Current returns the live counter for kind.
func (s *Slots) Current(kind ResourceKind) int {
	if kind == KindUsers {
		return s.CurrentUsersCount
	}
	return s.CurrentBrandsCount
}

// SetCurrent overwrites the live counter for kind.
func (s *Slots) SetCurrent(kind ResourceKind, value int) {
	if kind == KindUsers {
		s.CurrentUsersCount = value
		return
	}
	s.CurrentBrandsCount = value
}
