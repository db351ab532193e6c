package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	"github.com/megahub-io/megahub/internal/config"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	obsmetrics "github.com/megahub-io/megahub/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrScopeForbidden covers every failed brand resolution: unknown brand,
// soft-deleted brand, foreign company, missing membership. The caller maps
// them all to one response so probing cannot distinguish "does not exist"
// from "not yours".
var ErrScopeForbidden = errors.New("scope_forbidden")

type ResolverParams struct {
	fx.In

	Log     *zap.Logger
	Cfg     *config.Config
	Brands  branddomain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Resolver derives the request's brand scope from the authenticated user
// and the optional brand header.
type Resolver struct {
	log         *zap.Logger
	brands      branddomain.Repository
	metrics     *obsmetrics.Metrics
	staffBypass bool
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{
		log:         p.Log.Named("tenant.resolver"),
		brands:      p.Brands,
		metrics:     p.Metrics,
		staffBypass: p.Cfg.PlatformStaffBypass,
	}
}

// Resolve picks the brand scope. Platform actors with the bypass may name
// any live brand; company users may name only live brands of their own
// company, and non-admin members only brands they belong to. A company
// admin scoped to a brand of their own company also runs with the admin
// bypass. With no header, a user with exactly one membership is scoped to
// it; everyone else runs unscoped.
func (r *Resolver) Resolve(ctx context.Context, user *identitydomain.User, brandHeader string) (*RequestContext, error) {
	if user == nil {
		return nil, ErrScopeForbidden
	}

	rc := &RequestContext{
		User:          user,
		CompanyID:     user.CompanyID,
		Source:        SourceNone,
		IsAdminBypass: r.platformBypass(user),
	}

	header := strings.TrimSpace(brandHeader)
	if header != "" {
		brand, err := r.headerBrand(ctx, user, header)
		if err != nil {
			return nil, err
		}
		rc.Brand = brand
		rc.Source = SourceHeader
		if !user.IsPlatform() {
			companyID := brand.CompanyID
			rc.CompanyID = &companyID
		}
		if adminBypass(user, rc.Brand) {
			rc.IsAdminBypass = true
		}
		r.record(ctx, rc)
		return rc, nil
	}

	if user.IsPlatform() {
		r.record(ctx, rc)
		return rc, nil
	}

	memberships, err := r.brands.ListLiveByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 1 {
		rc.Brand = &memberships[0]
		rc.Source = SourceMembership
		companyID := memberships[0].CompanyID
		rc.CompanyID = &companyID
	}
	if adminBypass(user, rc.Brand) {
		rc.IsAdminBypass = true
	}

	r.record(ctx, rc)
	return rc, nil
}

// platformBypass reports whether the user carries the platform-wide bypass.
// Superusers always do; staff only while the config flag is on.
func (r *Resolver) platformBypass(user *identitydomain.User) bool {
	if user.IsSuperuser() {
		return true
	}
	return user.Kind == identitydomain.KindPlatformStaff && r.staffBypass
}

// adminBypass reports whether a company admin is scoped to a brand of
// their own company.
func adminBypass(user *identitydomain.User, brand *branddomain.Brand) bool {
	if brand == nil || user.Kind != identitydomain.KindCompanyAdmin {
		return false
	}
	return user.CompanyID != nil && *user.CompanyID == brand.CompanyID
}

func (r *Resolver) headerBrand(ctx context.Context, user *identitydomain.User, header string) (*branddomain.Brand, error) {
	brandID, err := snowflake.ParseString(header)
	if err != nil {
		return nil, ErrScopeForbidden
	}

	// Soft-deleted brands never resolve, for staff included.
	brand, err := r.brands.FindLiveByID(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if brand == nil {
		return nil, ErrScopeForbidden
	}

	if r.platformBypass(user) {
		return brand, nil
	}

	if user.CompanyID == nil || *user.CompanyID != brand.CompanyID {
		return nil, ErrScopeForbidden
	}
	if user.Kind == identitydomain.KindCompanyAdmin {
		return brand, nil
	}

	member, err := r.brands.IsMember(ctx, brand.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		r.log.Warn("brand scope denied",
			zap.String("user_id", user.ID.String()),
			zap.String("brand_id", brand.ID.String()),
		)
		return nil, ErrScopeForbidden
	}
	return brand, nil
}

func (r *Resolver) record(ctx context.Context, rc *RequestContext) {
	r.metrics.RecordTenantResolve(ctx, string(rc.Source))
}
