package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Name        string `json:"name"`
	AdminUserID string `json:"admin_user_id,omitempty"`
}

type ListRequest struct {
	IncludeDeleted bool
	// MemberUserID narrows the listing to brands the user belongs to.
	// Set for non-admin members; admins and staff list the whole company.
	MemberUserID *snowflake.ID
	PageToken    string
	PageSize     int
}

type Response struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	AdminUserID *string    `json:"admin_user_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsDeleted   bool       `json:"is_deleted,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

type ListResponse struct {
	Brands        []Response `json:"brands"`
	NextPageToken string     `json:"next_page_token,omitempty"`
	HasMore       bool       `json:"has_more"`
}

// Service manages brands within the resolved company. Creation reserves a
// brand slot; deletion is soft and releases the slot.
type Service interface {
	Create(ctx context.Context, companyID snowflake.ID, req CreateRequest) (*Response, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Response, error)
	// List returns brands for one company, or for every company when
	// companyID is nil (platform staff listing).
	List(ctx context.Context, companyID *snowflake.ID, req ListRequest) (*ListResponse, error)
	Delete(ctx context.Context, companyID, id snowflake.ID) error
	AddMember(ctx context.Context, companyID, brandID, userID snowflake.ID) error
	RemoveMember(ctx context.Context, companyID, brandID, userID snowflake.ID) error
	SetAdmin(ctx context.Context, companyID, brandID, userID snowflake.ID) error
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidName    = errors.New("invalid_name")
	ErrNameTaken      = errors.New("brand_name_taken")
	ErrInvalidUser    = errors.New("invalid_user")
	ErrNotCompanyUser = errors.New("user_not_in_company")
	ErrNotMember      = errors.New("user_not_brand_member")
)
