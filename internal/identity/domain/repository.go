package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByIdentityKey(ctx context.Context, key string) (*User, error)
	Update(ctx context.Context, user *User) error
	CountByCompany(ctx context.Context, companyID snowflake.ID) (int64, error)
}
