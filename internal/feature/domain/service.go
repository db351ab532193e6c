package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ActiveFeature is one live grant joined with its catalog entry.
type ActiveFeature struct {
	Key          string     `json:"key"`
	Name         string     `json:"name"`
	UsageLimit   *int       `json:"usage_limit,omitempty"`
	CurrentUsage int        `json:"current_usage"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// GrantRequest enables a feature for a company. UsageLimit nil falls back
// to the catalog default; ExpiresAt nil grants without expiry.
type GrantRequest struct {
	Key        string     `json:"key"`
	UsageLimit *int       `json:"usage_limit,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// UsageResult reports the grant state after a successful increment.
type UsageResult struct {
	Key          string   `json:"key"`
	UsageLimit   *int     `json:"usage_limit,omitempty"`
	CurrentUsage int      `json:"current_usage"`
	UsagePct     *float64 `json:"usage_pct,omitempty"`
}

// Service is the feature gate. CheckAndIncrement is the only consumption
// path: the limit check, the counter bump and the usage log row commit in
// one transaction.
type Service interface {
	// Active returns the company's enabled, unexpired grants. Companies
	// start with no grants; absence means disabled, never an error.
	Active(ctx context.Context, companyID snowflake.ID) ([]ActiveFeature, error)
	IsEnabled(ctx context.Context, companyID snowflake.ID, key string) (bool, error)
	// CheckAndIncrement consumes quantity units of the feature. A zero
	// quantity succeeds without writing anything; a disabled, expired or
	// missing grant fails with ErrFeatureDisabled; crossing the limit
	// fails with ErrUsageLimitReached and consumes nothing.
	CheckAndIncrement(ctx context.Context, companyID snowflake.ID, key string, quantity int, metadata map[string]any) (*UsageResult, error)
	UsagePercentage(ctx context.Context, companyID snowflake.ID, key string) (float64, error)
	Grant(ctx context.Context, companyID snowflake.ID, req GrantRequest) (*ActiveFeature, error)
	Revoke(ctx context.Context, companyID snowflake.ID, key string) error
	ListCatalog(ctx context.Context) ([]Feature, error)
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidKey        = errors.New("invalid_feature_key")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrFeatureDisabled   = errors.New("feature_disabled")
	ErrUsageLimitReached = errors.New("feature_limit_reached")
)
