package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/megahub-io/megahub/internal/alert/domain"
	"github.com/megahub-io/megahub/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("alert.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) EnsureActive(ctx context.Context, tx *gorm.DB, req domain.EnsureRequest) error {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	existing, err := repo.FindActive(ctx, req.CompanyID, req.Kind)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	alert := &domain.UsageAlert{
		ID:             s.genID.Generate(),
		CompanyID:      req.CompanyID,
		Kind:           req.Kind,
		ThresholdValue: req.ThresholdValue,
		CurrentValue:   req.CurrentValue,
		Message:        req.Message,
		Status:         domain.StatusActive,
		CreatedAt:      time.Now().UTC(),
	}
	if err := repo.Create(ctx, alert); err != nil {
		// The partial unique index holds one active row per (company, kind).
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}

	s.log.Warn("usage alert raised",
		zap.String("company_id", req.CompanyID.String()),
		zap.String("kind", req.Kind),
		zap.Float64("current", req.CurrentValue),
		zap.Float64("threshold", req.ThresholdValue),
	)
	return nil
}

func (s *Service) Resolve(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, kind string) error {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	alert, err := repo.FindActive(ctx, companyID, kind)
	if err != nil {
		return err
	}
	if alert == nil {
		return nil
	}

	now := time.Now().UTC()
	alert.Status = domain.StatusResolved
	alert.ResolvedAt = &now
	return repo.Update(ctx, alert)
}

func (s *Service) Dismiss(ctx context.Context, companyID, id snowflake.ID) error {
	alert, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return err
	}
	if alert == nil {
		return domain.ErrNotFound
	}
	if alert.Status != domain.StatusActive {
		return nil
	}

	now := time.Now().UTC()
	alert.Status = domain.StatusDismissed
	alert.ResolvedAt = &now
	return s.repo.Update(ctx, alert)
}

func (s *Service) ListActive(ctx context.Context, companyID snowflake.ID) ([]domain.UsageAlert, error) {
	return s.repo.ListActive(ctx, companyID)
}
