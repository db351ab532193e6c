package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	companydomain "github.com/megahub-io/megahub/internal/company/domain"
	"github.com/megahub-io/megahub/internal/config"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	"github.com/megahub-io/megahub/internal/onboarding/domain"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
	"github.com/megahub-io/megahub/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockTTL     = 30 * time.Second
	trialPeriod = 14 * 24 * time.Hour
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Cfg       *config.Config
	Users     identitydomain.Repository
	Companies companydomain.Repository
	Brands    branddomain.Repository
	Slots     slotsdomain.Service
	Locker    *Locker `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	cfg       *config.Config
	users     identitydomain.Repository
	companies companydomain.Repository
	brands    branddomain.Repository
	slots     slotsdomain.Service
	locker    *Locker
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("onboarding.service"),
		genID:     p.GenID,
		cfg:       p.Cfg,
		users:     p.Users,
		companies: p.Companies,
		brands:    p.Brands,
		slots:     p.Slots,
		locker:    p.Locker,
	}
}

// CreateSoloBusiness provisions company, slot ledger, first brand and admin
// membership in one transaction. An already-onboarded user is not eligible;
// only a concurrent caller losing the creation race gets the winner's IDs.
func (s *Service) CreateSoloBusiness(ctx context.Context, userID snowflake.ID, req domain.Request) (*domain.Result, error) {
	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" {
		return nil, domain.ErrInvalidRequest
	}
	brandName := strings.TrimSpace(req.BrandName)
	if brandName == "" {
		brandName = companyName
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsPlatform() {
		return nil, domain.ErrNotEligible
	}
	if user.CompanyID != nil {
		return nil, domain.ErrNotEligible
	}

	if s.locker != nil {
		key := fmt.Sprintf("onboarding:user:%s", userID.String())
		token, ok, err := s.locker.TryLock(ctx, key, lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrBusy
		}
		defer func() {
			_ = s.locker.Release(ctx, key, token)
		}()
	}

	now := time.Now().UTC()
	trialEnd := now.Add(trialPeriod)
	company := &companydomain.Company{
		ID:             s.genID.Generate(),
		Name:           companyName,
		AdminUserID:    userID,
		BillingEmail:   strings.TrimSpace(req.BillingEmail),
		TrialExpiresAt: &trialEnd,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	brand := &branddomain.Brand{
		ID:          s.genID.Generate(),
		CompanyID:   company.ID,
		Name:        brandName,
		Slug:        slug.Make(brandName),
		AdminUserID: &userID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.companies.WithTx(tx).Create(ctx, company); err != nil {
			return err
		}
		if err := s.slots.CreateForCompany(ctx, tx, company.ID, s.cfg.DefaultBrandsSlots, s.cfg.DefaultUsersSlots); err != nil {
			return err
		}
		if err := s.slots.Reserve(ctx, tx, company.ID, slotsdomain.KindBrands, 1); err != nil {
			return err
		}
		if err := s.slots.Reserve(ctx, tx, company.ID, slotsdomain.KindUsers, 1); err != nil {
			return err
		}

		brandRepo := s.brands.WithTx(tx)
		if err := brandRepo.Create(ctx, brand); err != nil {
			return err
		}
		if err := brandRepo.AddMember(ctx, &branddomain.BrandMember{
			ID:        s.genID.Generate(),
			BrandID:   brand.ID,
			UserID:    userID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		user.CompanyID = &company.ID
		user.Kind = identitydomain.KindCompanyAdmin
		user.UpdatedAt = now
		return s.users.WithTx(tx).Update(ctx, user)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			// A concurrent submit won the race; report its outcome.
			return s.reloadResult(ctx, userID)
		}
		return nil, err
	}

	s.log.Info("solo business provisioned",
		zap.String("user_id", userID.String()),
		zap.String("company_id", company.ID.String()),
		zap.String("brand_id", brand.ID.String()),
	)
	return &domain.Result{
		CompanyID: company.ID.String(),
		BrandID:   brand.ID.String(),
		UserID:    userID.String(),
		Created:   true,
	}, nil
}

func (s *Service) Status(ctx context.Context, userID snowflake.ID) (*domain.Status, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotEligible
	}

	status := &domain.Status{UserID: userID.String()}
	if user.CompanyID == nil {
		return status, nil
	}
	status.HasCompany = true
	status.CompanyID = user.CompanyID.String()

	brands, err := s.brands.ListByCompany(ctx, *user.CompanyID, false, 0, 0)
	if err != nil {
		return nil, err
	}
	status.BrandCount = len(brands)
	status.HasBrand = len(brands) > 0
	status.IsComplete = status.HasCompany && status.HasBrand
	return status, nil
}

// TriggerFallback finishes a half-provisioned onboarding: a user with no
// company restarts from scratch, a company with no live brand gets its
// first brand back.
func (s *Service) TriggerFallback(ctx context.Context, userID snowflake.ID) (*domain.Result, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsPlatform() {
		return nil, domain.ErrNotEligible
	}

	if user.CompanyID == nil {
		return s.CreateSoloBusiness(ctx, userID, domain.Request{CompanyName: user.DisplayName})
	}

	company, err := s.companies.FindByID(ctx, *user.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotEligible
	}

	brands, err := s.brands.ListByCompany(ctx, company.ID, false, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(brands) > 0 {
		return &domain.Result{
			CompanyID: company.ID.String(),
			BrandID:   brands[0].ID.String(),
			UserID:    userID.String(),
			Created:   false,
		}, nil
	}

	now := time.Now().UTC()
	brand := &branddomain.Brand{
		ID:          s.genID.Generate(),
		CompanyID:   company.ID,
		Name:        company.Name,
		Slug:        slug.Make(company.Name),
		AdminUserID: &userID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.slots.Reserve(ctx, tx, company.ID, slotsdomain.KindBrands, 1); err != nil {
			return err
		}
		brandRepo := s.brands.WithTx(tx)
		if err := brandRepo.Create(ctx, brand); err != nil {
			return err
		}
		return brandRepo.AddMember(ctx, &branddomain.BrandMember{
			ID:        s.genID.Generate(),
			BrandID:   brand.ID,
			UserID:    userID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("onboarding fallback completed",
		zap.String("user_id", userID.String()),
		zap.String("company_id", company.ID.String()),
	)
	return &domain.Result{
		CompanyID: company.ID.String(),
		BrandID:   brand.ID.String(),
		UserID:    userID.String(),
		Created:   true,
	}, nil
}

func (s *Service) existingResult(ctx context.Context, user *identitydomain.User) (*domain.Result, error) {
	result := &domain.Result{
		UserID:    user.ID.String(),
		CompanyID: user.CompanyID.String(),
		Created:   false,
	}
	brands, err := s.brands.ListByCompany(ctx, *user.CompanyID, false, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(brands) > 0 {
		result.BrandID = brands[0].ID.String()
	}
	return result, nil
}

func (s *Service) reloadResult(ctx context.Context, userID snowflake.ID) (*domain.Result, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.CompanyID == nil {
		return nil, domain.ErrNotEligible
	}
	return s.existingResult(ctx, user)
}
