package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/megahub-io/megahub/internal/brand/domain"
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

func (r *repo) Create(ctx context.Context, brand *domain.Brand) error {
	return r.db.WithContext(ctx).Create(brand).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Brand, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repo) FindLiveByID(ctx context.Context, id snowflake.ID) (*domain.Brand, error) {
	return r.first(ctx, "id = ? AND is_deleted = ?", id, false)
}

func (r *repo) first(ctx context.Context, query string, args ...any) (*domain.Brand, error) {
	var brand domain.Brand
	err := r.db.WithContext(ctx).First(&brand, append([]any{query}, args...)...).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &brand, nil
}

func (r *repo) ListByCompany(ctx context.Context, companyID snowflake.ID, includeDeleted bool, afterID snowflake.ID, limit int) ([]domain.Brand, error) {
	stmt := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	return listPage(stmt, includeDeleted, afterID, limit)
}

func (r *repo) ListByCompanyForMember(ctx context.Context, companyID, userID snowflake.ID, afterID snowflake.ID, limit int) ([]domain.Brand, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.Brand{}).
		Joins("JOIN brand_members m ON m.brand_id = brands.id").
		Where("brands.company_id = ? AND m.user_id = ? AND brands.is_deleted = ?", companyID, userID, false)
	if afterID > 0 {
		stmt = stmt.Where("brands.id > ?", afterID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var brands []domain.Brand
	err := stmt.Order("brands.id ASC").Find(&brands).Error
	return brands, err
}

func (r *repo) ListAll(ctx context.Context, includeDeleted bool, afterID snowflake.ID, limit int) ([]domain.Brand, error) {
	return listPage(r.db.WithContext(ctx), includeDeleted, afterID, limit)
}

func listPage(stmt *gorm.DB, includeDeleted bool, afterID snowflake.ID, limit int) ([]domain.Brand, error) {
	if !includeDeleted {
		stmt = stmt.Where("is_deleted = ?", false)
	}
	if afterID > 0 {
		stmt = stmt.Where("id > ?", afterID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var brands []domain.Brand
	err := stmt.Order("id ASC").Find(&brands).Error
	return brands, err
}

func (r *repo) ListLiveByUser(ctx context.Context, userID snowflake.ID) ([]domain.Brand, error) {
	var brands []domain.Brand
	err := r.db.WithContext(ctx).Raw(
		`SELECT b.id, b.company_id, b.name, b.slug, b.admin_user_id,
		        b.is_active, b.is_deleted, b.deleted_at, b.created_at, b.updated_at
		 FROM brands b
		 JOIN brand_members m ON m.brand_id = b.id
		 WHERE m.user_id = ? AND b.is_deleted = ?
		 ORDER BY b.created_at ASC`,
		userID,
		false,
	).Scan(&brands).Error
	return brands, err
}

func (r *repo) Update(ctx context.Context, brand *domain.Brand) error {
	return r.db.WithContext(ctx).Save(brand).Error
}

func (r *repo) AddMember(ctx context.Context, member *domain.BrandMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repo) RemoveMember(ctx context.Context, brandID, userID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("brand_id = ? AND user_id = ?", brandID, userID).
		Delete(&domain.BrandMember{}).Error
}

func (r *repo) IsMember(ctx context.Context, brandID, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.BrandMember{}).
		Where("brand_id = ? AND user_id = ?", brandID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) ListMemberIDs(ctx context.Context, brandID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).
		Model(&domain.BrandMember{}).
		Where("brand_id = ?", brandID).
		Pluck("user_id", &ids).Error
	return ids, err
}
