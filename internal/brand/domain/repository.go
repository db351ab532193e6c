package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, brand *Brand) error
	FindByID(ctx context.Context, id snowflake.ID) (*Brand, error)
	// FindLiveByID ignores soft-deleted brands.
	FindLiveByID(ctx context.Context, id snowflake.ID) (*Brand, error)
	// ListByCompany pages by snowflake ID: rows with id > afterID, at most
	// limit rows (no cap when limit <= 0).
	ListByCompany(ctx context.Context, companyID snowflake.ID, includeDeleted bool, afterID snowflake.ID, limit int) ([]Brand, error)
	// ListByCompanyForMember pages the company's live brands the user is a
	// member of.
	ListByCompanyForMember(ctx context.Context, companyID, userID snowflake.ID, afterID snowflake.ID, limit int) ([]Brand, error)
	ListAll(ctx context.Context, includeDeleted bool, afterID snowflake.ID, limit int) ([]Brand, error)
	// ListLiveByUser returns the non-deleted brands the user is a member of.
	ListLiveByUser(ctx context.Context, userID snowflake.ID) ([]Brand, error)
	Update(ctx context.Context, brand *Brand) error
	AddMember(ctx context.Context, member *BrandMember) error
	RemoveMember(ctx context.Context, brandID, userID snowflake.ID) error
	IsMember(ctx context.Context, brandID, userID snowflake.ID) (bool, error)
	ListMemberIDs(ctx context.Context, brandID snowflake.ID) ([]snowflake.ID, error)
}
