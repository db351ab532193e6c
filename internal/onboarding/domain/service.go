// Package domain defines the solo-business onboarding contract.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Request carries the self-serve onboarding input. BrandName defaults to
// the company name when empty.
type Request struct {
	CompanyName  string `json:"company_name"`
	BrandName    string `json:"brand_name,omitempty"`
	BillingEmail string `json:"billing_email,omitempty"`
}

// Result reports what the orchestrator provisioned. Repeated calls for the
// same user return the already-provisioned IDs with Created false.
type Result struct {
	CompanyID string `json:"company_id"`
	BrandID   string `json:"brand_id"`
	UserID    string `json:"user_id"`
	Created   bool   `json:"created"`
}

// Status describes how far a user's onboarding has progressed.
type Status struct {
	UserID     string `json:"user_id"`
	HasCompany bool   `json:"has_company"`
	HasBrand   bool   `json:"has_brand"`
	CompanyID  string `json:"company_id,omitempty"`
	BrandCount int    `json:"brand_count"`
	IsComplete bool   `json:"is_complete"`
}

// Service turns a bare user into a working company with one brand, one
// admin and a seeded slot ledger, atomically and idempotently.
type Service interface {
	CreateSoloBusiness(ctx context.Context, userID snowflake.ID, req Request) (*Result, error)
	Status(ctx context.Context, userID snowflake.ID) (*Status, error)
	// TriggerFallback re-runs provisioning for a user whose earlier attempt
	// was interrupted, completing whatever is missing.
	TriggerFallback(ctx context.Context, userID snowflake.ID) (*Result, error)
}

var (
	ErrNotEligible    = errors.New("not_eligible")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrBusy           = errors.New("onboarding_in_progress")
)
