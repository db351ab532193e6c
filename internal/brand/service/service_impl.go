package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/megahub-io/megahub/internal/brand/domain"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
	"github.com/megahub-io/megahub/pkg/db"
	"github.com/megahub-io/megahub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Users identitydomain.Repository
	Slots slotsdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	users identitydomain.Repository
	slots slotsdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("brand.service"),
		genID: p.GenID,
		repo:  p.Repo,
		users: p.Users,
		slots: p.Slots,
	}
}

// Create reserves a brand slot and inserts the brand in one transaction, so
// a full ledger rolls the insert back and a lost insert rolls the
// reservation back.
func (s *Service) Create(ctx context.Context, companyID snowflake.ID, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 120 {
		return nil, domain.ErrInvalidName
	}

	var admin *identitydomain.User
	if req.AdminUserID != "" {
		adminID, err := snowflake.ParseString(req.AdminUserID)
		if err != nil {
			return nil, domain.ErrInvalidUser
		}
		admin, err = s.companyUser(ctx, companyID, adminID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	brand := &domain.Brand{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		Name:      name,
		Slug:      slug.Make(name),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if admin != nil {
		brand.AdminUserID = &admin.ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.slots.Reserve(ctx, tx, companyID, slotsdomain.KindBrands, 1); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, brand); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrNameTaken
			}
			return err
		}

		if admin != nil {
			return repo.AddMember(ctx, &domain.BrandMember{
				ID:        s.genID.Generate(),
				BrandID:   brand.ID,
				UserID:    admin.ID,
				CreatedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("brand created",
		zap.String("brand_id", brand.ID.String()),
		zap.String("company_id", companyID.String()),
	)
	return toResponse(brand), nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Response, error) {
	brand, err := s.repo.FindLiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if brand == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(brand), nil
}

func (s *Service) List(ctx context.Context, companyID *snowflake.ID, req domain.ListRequest) (*domain.ListResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = 25
	}
	if limit > 250 {
		limit = 250
	}

	var afterID snowflake.ID
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, fmt.Errorf("invalid page token: %w", err)
		}
		afterID, err = snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid page token: %w", err)
		}
	}

	var (
		brands []domain.Brand
		err    error
	)
	switch {
	case companyID != nil && req.MemberUserID != nil:
		brands, err = s.repo.ListByCompanyForMember(ctx, *companyID, *req.MemberUserID, afterID, limit+1)
	case companyID != nil:
		brands, err = s.repo.ListByCompany(ctx, *companyID, req.IncludeDeleted, afterID, limit+1)
	default:
		brands, err = s.repo.ListAll(ctx, req.IncludeDeleted, afterID, limit+1)
	}
	if err != nil {
		return nil, err
	}

	rows := make([]*domain.Brand, len(brands))
	for i := range brands {
		rows[i] = &brands[i]
	}
	pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(b *domain.Brand) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        b.ID.String(),
			CreatedAt: b.CreatedAt.Format(time.RFC3339Nano),
		})
		return token
	})

	if len(brands) > limit {
		brands = brands[:limit]
	}
	out := make([]domain.Response, 0, len(brands))
	for i := range brands {
		out = append(out, *toResponse(&brands[i]))
	}

	resp := &domain.ListResponse{Brands: out, HasMore: pageInfo.HasMore}
	if pageInfo.HasMore {
		resp.NextPageToken = pageInfo.NextPageToken
	}
	return resp, nil
}

// Delete soft-deletes the brand and releases its slot. The stored name gets
// an id suffix so the (company, name) unique index frees the original name
// for reuse.
func (s *Service) Delete(ctx context.Context, companyID, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		brand, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if brand == nil || brand.CompanyID != companyID {
			return domain.ErrNotFound
		}
		if brand.IsDeleted {
			// Already gone; the slot was released on the first delete.
			return nil
		}

		now := time.Now().UTC()
		brand.IsDeleted = true
		brand.IsActive = false
		brand.DeletedAt = &now
		brand.UpdatedAt = now
		brand.Name = fmt.Sprintf("%s~deleted~%s", brand.Name, brand.ID.String())
		if err := repo.Update(ctx, brand); err != nil {
			return err
		}

		if err := s.slots.Release(ctx, tx, companyID, slotsdomain.KindBrands, 1); err != nil {
			return err
		}

		s.log.Info("brand deleted",
			zap.String("brand_id", id.String()),
			zap.String("company_id", companyID.String()),
		)
		return nil
	})
}

func (s *Service) AddMember(ctx context.Context, companyID, brandID, userID snowflake.ID) error {
	brand, err := s.liveCompanyBrand(ctx, companyID, brandID)
	if err != nil {
		return err
	}
	if _, err := s.companyUser(ctx, companyID, userID); err != nil {
		return err
	}

	err = s.repo.AddMember(ctx, &domain.BrandMember{
		ID:        s.genID.Generate(),
		BrandID:   brand.ID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && !db.IsDuplicateKeyErr(err) {
		return err
	}
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, companyID, brandID, userID snowflake.ID) error {
	brand, err := s.liveCompanyBrand(ctx, companyID, brandID)
	if err != nil {
		return err
	}

	member, err := s.repo.IsMember(ctx, brand.ID, userID)
	if err != nil {
		return err
	}
	if !member {
		return domain.ErrNotMember
	}

	if brand.AdminUserID != nil && *brand.AdminUserID == userID {
		brand.AdminUserID = nil
		brand.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, brand); err != nil {
			return err
		}
	}
	return s.repo.RemoveMember(ctx, brand.ID, userID)
}

// SetAdmin promotes a company user to brand admin, adding the membership row
// when it is missing.
func (s *Service) SetAdmin(ctx context.Context, companyID, brandID, userID snowflake.ID) error {
	brand, err := s.liveCompanyBrand(ctx, companyID, brandID)
	if err != nil {
		return err
	}
	if _, err := s.companyUser(ctx, companyID, userID); err != nil {
		return err
	}

	member, err := s.repo.IsMember(ctx, brand.ID, userID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if !member {
			if err := repo.AddMember(ctx, &domain.BrandMember{
				ID:        s.genID.Generate(),
				BrandID:   brand.ID,
				UserID:    userID,
				CreatedAt: time.Now().UTC(),
			}); err != nil && !db.IsDuplicateKeyErr(err) {
				return err
			}
		}

		brand.AdminUserID = &userID
		brand.UpdatedAt = time.Now().UTC()
		return repo.Update(ctx, brand)
	})
}

func (s *Service) liveCompanyBrand(ctx context.Context, companyID, brandID snowflake.ID) (*domain.Brand, error) {
	brand, err := s.repo.FindLiveByID(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if brand == nil || brand.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return brand, nil
}

func (s *Service) companyUser(ctx context.Context, companyID, userID snowflake.ID) (*identitydomain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidUser
	}
	if user.CompanyID == nil || *user.CompanyID != companyID {
		return nil, domain.ErrNotCompanyUser
	}
	return user, nil
}

func toResponse(b *domain.Brand) *domain.Response {
	resp := &domain.Response{
		ID:        b.ID.String(),
		CompanyID: b.CompanyID.String(),
		Name:      b.Name,
		Slug:      b.Slug,
		IsActive:  b.IsActive,
		IsDeleted: b.IsDeleted,
		CreatedAt: b.CreatedAt,
		DeletedAt: b.DeletedAt,
	}
	if b.AdminUserID != nil {
		id := b.AdminUserID.String()
		resp.AdminUserID = &id
	}
	return resp
}
