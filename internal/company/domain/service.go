package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, company *Company) error
	FindByID(ctx context.Context, id snowflake.ID) (*Company, error)
	ListIDs(ctx context.Context) ([]snowflake.ID, error)
	Update(ctx context.Context, company *Company) error
}

type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Company, error)
}

var (
	ErrNotFound    = errors.New("not_found")
	ErrInvalidName = errors.New("invalid_name")
)
