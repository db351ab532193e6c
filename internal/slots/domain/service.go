package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, slots *Slots) error
	FindByCompany(ctx context.Context, companyID snowflake.ID) (*Slots, error)
	// LockByCompany acquires the per-company row lock. It must run inside
	// the caller's transaction.
	LockByCompany(ctx context.Context, companyID snowflake.ID) (*Slots, error)
	UpdateCounters(ctx context.Context, slots *Slots) error
	UpdateLimits(ctx context.Context, slots *Slots) error
	CountLiveBrands(ctx context.Context, companyID snowflake.ID) (int64, error)
	CountUsers(ctx context.Context, companyID snowflake.ID) (int64, error)
}

type Usage struct {
	CompanyID          string `json:"company_id"`
	BrandsSlots        int    `json:"brands_slots"`
	UsersSlots         int    `json:"users_slots"`
	CurrentBrandsCount int    `json:"current_brands_count"`
	CurrentUsersCount  int    `json:"current_users_count"`
}

type SetLimitsRequest struct {
	BrandsSlots *int `json:"brands_slots,omitempty"`
	UsersSlots  *int `json:"users_slots,omitempty"`
}

// Service is the slot ledger. Reserve and Release take the caller's
// transaction: the counter mutation commits or rolls back together with the
// resource row the caller creates or deletes.
type Service interface {
	CreateForCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, brandsSlots, usersSlots int) error
	Reserve(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, kind ResourceKind, n int) error
	Release(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, kind ResourceKind, n int) error
	// AssertCapacity is a read-only probe for UIs. It is racy by nature and
	// must never gate a mutation; Reserve is the gate.
	AssertCapacity(ctx context.Context, companyID snowflake.ID, kind ResourceKind) error
	Usage(ctx context.Context, companyID snowflake.ID) (*Usage, error)
	Reconcile(ctx context.Context, companyID snowflake.ID) (*Usage, error)
	SetLimits(ctx context.Context, companyID snowflake.ID, req SetLimitsRequest) (*Usage, error)
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidKind        = errors.New("invalid_resource_kind")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidLimit       = errors.New("invalid_limit")
	ErrCapacityExceeded   = errors.New("slots_limit_reached")
	ErrInvariantViolation = errors.New("slots_invariant_violation")
)
