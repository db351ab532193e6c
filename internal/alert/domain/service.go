package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, alert *UsageAlert) error
	FindActive(ctx context.Context, companyID snowflake.ID, kind string) (*UsageAlert, error)
	FindByID(ctx context.Context, companyID, id snowflake.ID) (*UsageAlert, error)
	ListActive(ctx context.Context, companyID snowflake.ID) ([]UsageAlert, error)
	Update(ctx context.Context, alert *UsageAlert) error
}

// EnsureRequest describes a threshold crossing to record.
type EnsureRequest struct {
	CompanyID      snowflake.ID
	Kind           string
	ThresholdValue float64
	CurrentValue   float64
	Message        string
}

// Service maintains the one-active-alert-per-(company, kind) invariant.
// EnsureActive and Resolve accept the caller's transaction so alerts commit
// atomically with the counter mutation that triggered them.
type Service interface {
	EnsureActive(ctx context.Context, tx *gorm.DB, req EnsureRequest) error
	Resolve(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, kind string) error
	Dismiss(ctx context.Context, companyID, id snowflake.ID) error
	ListActive(ctx context.Context, companyID snowflake.ID) ([]UsageAlert, error)
}

var ErrNotFound = errors.New("not_found")
