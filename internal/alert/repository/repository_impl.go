package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/megahub-io/megahub/internal/alert/domain"
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

func (r *repo) Create(ctx context.Context, alert *domain.UsageAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *repo) FindActive(ctx context.Context, companyID snowflake.ID, kind string) (*domain.UsageAlert, error) {
	var alert domain.UsageAlert
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND kind = ? AND status = ?", companyID, kind, domain.StatusActive).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

func (r *repo) FindByID(ctx context.Context, companyID, id snowflake.ID) (*domain.UsageAlert, error) {
	var alert domain.UsageAlert
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

func (r *repo) ListActive(ctx context.Context, companyID snowflake.ID) ([]domain.UsageAlert, error) {
	var alerts []domain.UsageAlert
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, domain.StatusActive).
		Order("created_at DESC").
		Find(&alerts).Error
	return alerts, err
}

func (r *repo) Update(ctx context.Context, alert *domain.UsageAlert) error {
	return r.db.WithContext(ctx).Save(alert).Error
}
