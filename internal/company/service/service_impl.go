package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/megahub-io/megahub/internal/company/domain"
	"go.uber.org/zap"
)

type service struct {
	log  *zap.Logger
	repo domain.Repository
}

func New(log *zap.Logger, repo domain.Repository) domain.Service {
	return &service{
		log:  log.Named("company.service"),
		repo: repo,
	}
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	return company, nil
}
