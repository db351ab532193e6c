package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/megahub-io/megahub/internal/identity/domain"
	"github.com/megahub-io/megahub/pkg/db"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("identity.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Authenticate(ctx context.Context, credential string) (*domain.User, error) {
	key := strings.TrimSpace(credential)
	if key == "" {
		return nil, domain.ErrInvalidCredential
	}

	user, err := s.repo.FindByIdentityKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredential
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	key := strings.TrimSpace(req.IdentityKey)
	if key == "" {
		return nil, domain.ErrInvalidRequest
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = key
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:          s.genID.Generate(),
		IdentityKey: key,
		DisplayName: name,
		Kind:        domain.KindBrandMember,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}
