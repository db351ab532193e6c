package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/megahub-io/megahub/internal/slots/domain"
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

func (r *repo) Create(ctx context.Context, slots *domain.Slots) error {
	return r.db.WithContext(ctx).Create(slots).Error
}

func (r *repo) FindByCompany(ctx context.Context, companyID snowflake.ID) (*domain.Slots, error) {
	var slots domain.Slots
	err := r.db.WithContext(ctx).First(&slots, "company_id = ?", companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slots, nil
}

func (r *repo) LockByCompany(ctx context.Context, companyID snowflake.ID) (*domain.Slots, error) {
	var slots domain.Slots
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, company_id, brands_slots, users_slots,
		        current_brands_count, current_users_count, created_at, updated_at
		 FROM slots
		 WHERE company_id = ?
		 FOR UPDATE`,
		companyID,
	).Scan(&slots).Error
	if err != nil {
		return nil, err
	}
	if slots.ID == 0 {
		return nil, nil
	}
	return &slots, nil
}

func (r *repo) UpdateCounters(ctx context.Context, slots *domain.Slots) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE slots
		 SET current_brands_count = ?, current_users_count = ?, updated_at = ?
		 WHERE id = ?`,
		slots.CurrentBrandsCount,
		slots.CurrentUsersCount,
		time.Now().UTC(),
		slots.ID,
	).Error
}

func (r *repo) UpdateLimits(ctx context.Context, slots *domain.Slots) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE slots
		 SET brands_slots = ?, users_slots = ?, updated_at = ?
		 WHERE id = ?`,
		slots.BrandsSlots,
		slots.UsersSlots,
		time.Now().UTC(),
		slots.ID,
	).Error
}

func (r *repo) CountLiveBrands(ctx context.Context, companyID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("brands").
		Where("company_id = ? AND is_deleted = ?", companyID, false).
		Count(&count).Error
	return count, err
}

func (r *repo) CountUsers(ctx context.Context, companyID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("users").
		Where("company_id = ?", companyID).
		Count(&count).Error
	return count, err
}
