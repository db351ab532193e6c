package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/megahub-io/megahub/internal/feature/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{db: tx}
}

func (r *repo) CreateFeature(ctx context.Context, feature *domain.Feature) error {
	return r.db.WithContext(ctx).Create(feature).Error
}

func (r *repo) FindFeatureByKey(ctx context.Context, key string) (*domain.Feature, error) {
	var feature domain.Feature
	err := r.db.WithContext(ctx).First(&feature, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &feature, nil
}

func (r *repo) ListFeatures(ctx context.Context) ([]domain.Feature, error) {
	var features []domain.Feature
	err := r.db.WithContext(ctx).Order("key ASC").Find(&features).Error
	return features, err
}

func (r *repo) CreateGrant(ctx context.Context, grant *domain.CompanyFeature) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *repo) FindGrant(ctx context.Context, companyID, featureID snowflake.ID) (*domain.CompanyFeature, error) {
	var grant domain.CompanyFeature
	err := r.db.WithContext(ctx).
		First(&grant, "company_id = ? AND feature_id = ?", companyID, featureID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

func (r *repo) LockGrant(ctx context.Context, companyID, featureID snowflake.ID) (*domain.CompanyFeature, error) {
	var grant domain.CompanyFeature
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, company_id, feature_id, enabled, usage_limit, current_usage,
		        expires_at, created_at, updated_at
		 FROM company_features
		 WHERE company_id = ? AND feature_id = ?
		 FOR UPDATE`,
		companyID, featureID,
	).Scan(&grant).Error
	if err != nil {
		return nil, err
	}
	if grant.ID == 0 {
		return nil, nil
	}
	return &grant, nil
}

func (r *repo) ListGrantsByCompany(ctx context.Context, companyID snowflake.ID) ([]domain.CompanyFeature, error) {
	var grants []domain.CompanyFeature
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&grants).Error
	return grants, err
}

func (r *repo) UpdateGrant(ctx context.Context, grant *domain.CompanyFeature) error {
	return r.db.WithContext(ctx).Save(grant).Error
}

func (r *repo) CreateUsageLog(ctx context.Context, log *domain.FeatureUsageLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repo) ListUsageLogs(ctx context.Context, companyID, featureID snowflake.ID, limit int) ([]domain.FeatureUsageLog, error) {
	stmt := r.db.WithContext(ctx).
		Where("company_id = ? AND feature_id = ?", companyID, featureID).
		Order("created_at DESC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var logs []domain.FeatureUsageLog
	err := stmt.Find(&logs).Error
	return logs, err
}
