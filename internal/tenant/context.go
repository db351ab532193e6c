// Package tenant resolves the brand scope of every request and carries the
// result through the request context.
package tenant

import (
	"context"

	"github.com/bwmarrin/snowflake"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
)

// Source records how the brand scope was chosen.
type Source string

const (
	// SourceHeader means the client named the brand explicitly.
	SourceHeader Source = "header"
	// SourceMembership means the user's single brand membership was used.
	SourceMembership Source = "single_membership"
	// SourceNone means the request runs without a brand scope.
	SourceNone Source = "none"
)

// RequestContext is the resolved tenant scope. Brand is nil for unscoped
// requests; IsAdminBypass marks platform actors with the bypass and company
// admins scoped to a brand of their own company.
type RequestContext struct {
	User          *identitydomain.User
	CompanyID     *snowflake.ID
	Brand         *branddomain.Brand
	Source        Source
	IsAdminBypass bool
}

// BrandID returns the scoped brand's ID, or nil when unscoped.
func (rc *RequestContext) BrandID() *snowflake.ID {
	if rc == nil || rc.Brand == nil {
		return nil
	}
	id := rc.Brand.ID
	return &id
}

// ContextKey is the request context key for the resolved scope.
type ContextKey struct{}

// WithContext stores the resolved scope in the context.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ContextKey{}, rc)
}

// FromContext returns the resolved scope, if the request went through the
// resolver middleware.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(ContextKey{}).(*RequestContext)
	if !ok || rc == nil {
		return nil, false
	}
	return rc, true
}
