package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateFeature(ctx context.Context, feature *Feature) error
	FindFeatureByKey(ctx context.Context, key string) (*Feature, error)
	ListFeatures(ctx context.Context) ([]Feature, error)

	CreateGrant(ctx context.Context, grant *CompanyFeature) error
	FindGrant(ctx context.Context, companyID, featureID snowflake.ID) (*CompanyFeature, error)
	// LockGrant acquires the per-grant row lock. It must run inside the
	// caller's transaction.
	LockGrant(ctx context.Context, companyID, featureID snowflake.ID) (*CompanyFeature, error)
	ListGrantsByCompany(ctx context.Context, companyID snowflake.ID) ([]CompanyFeature, error)
	UpdateGrant(ctx context.Context, grant *CompanyFeature) error

	CreateUsageLog(ctx context.Context, log *FeatureUsageLog) error
	ListUsageLogs(ctx context.Context, companyID, featureID snowflake.ID, limit int) ([]FeatureUsageLog, error)
}
