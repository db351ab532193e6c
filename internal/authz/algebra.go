package authz

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	"github.com/megahub-io/megahub/internal/tenant"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("insufficient_role")
	ErrInvalidActor    = errors.New("invalid_actor")
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidObject   = errors.New("invalid_object")
	ErrInvalidAction   = errors.New("invalid_action")
)

// Action is the coarse verb a predicate chain guards.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
	ActionAdmin Action = "admin"
)

// Decision is one predicate's vote. Abstain passes the question along;
// a chain where nobody allows denies.
type Decision int

const (
	Abstain Decision = iota
	Allow
	Deny
)

// Target names the object under decision. OwnerUserID and BrandID are set
// when the object has an owner or a brand binding to test against.
type Target struct {
	Kind        string
	Action      Action
	OwnerUserID *snowflake.ID
	BrandID     *snowflake.ID
}

// Predicate is one structural rule. Predicates never return errors: a rule
// that cannot decide abstains.
type Predicate func(rc *tenant.RequestContext, t Target) Decision

// Evaluate runs the chain with deny-overrides: any Deny wins, else any
// Allow wins, else the request is denied. A missing user is an
// authentication failure, not a permission one.
func Evaluate(ctx context.Context, rc *tenant.RequestContext, t Target, chain ...Predicate) error {
	_ = ctx

	if rc == nil || rc.User == nil {
		return ErrUnauthenticated
	}

	allowed := false
	for _, p := range chain {
		switch p(rc, t) {
		case Deny:
			return ErrForbidden
		case Allow:
			allowed = true
		}
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// Authenticated allows any signed-in user. Useful as the tail of read-only
// chains.
func Authenticated(rc *tenant.RequestContext, t Target) Decision {
	if rc.User != nil {
		return Allow
	}
	return Abstain
}

// PlatformSuperuser allows the platform superuser unconditionally.
func PlatformSuperuser(rc *tenant.RequestContext, t Target) Decision {
	if rc.User.IsSuperuser() {
		return Allow
	}
	return Abstain
}

// PlatformStaff allows platform staff and superusers.
func PlatformStaff(rc *tenant.RequestContext, t Target) Decision {
	if rc.User.IsPlatform() {
		return Allow
	}
	return Abstain
}

// CompanyAdmin allows company admins acting within their own company scope.
func CompanyAdmin(rc *tenant.RequestContext, t Target) Decision {
	if rc.User.Kind != identitydomain.KindCompanyAdmin {
		return Abstain
	}
	if rc.CompanyID == nil {
		return Abstain
	}
	return Allow
}

// BrandAdmin allows the admin of the scoped brand.
func BrandAdmin(rc *tenant.RequestContext, t Target) Decision {
	if rc.Brand == nil || rc.Brand.AdminUserID == nil {
		return Abstain
	}
	if *rc.Brand.AdminUserID == rc.User.ID {
		return Allow
	}
	return Abstain
}

// BrandScoped allows requests that carry a resolved brand scope. The
// resolver has already proven membership or the admin bypass.
func BrandScoped(rc *tenant.RequestContext, t Target) Decision {
	if rc.Brand != nil {
		return Allow
	}
	return Abstain
}

// ReadOnly allows reads and abstains on everything else.
func ReadOnly(rc *tenant.RequestContext, t Target) Decision {
	if t.Action == ActionRead {
		return Allow
	}
	return Abstain
}

// Owner allows the user who owns the target object.
func Owner(rc *tenant.RequestContext, t Target) Decision {
	if t.OwnerUserID == nil {
		return Abstain
	}
	if *t.OwnerUserID == rc.User.ID {
		return Allow
	}
	return Abstain
}

// SameBrand denies targets bound to a brand other than the scoped one.
// Unscoped requests abstain and fall through to the rest of the chain.
func SameBrand(rc *tenant.RequestContext, t Target) Decision {
	if t.BrandID == nil || rc.Brand == nil {
		return Abstain
	}
	if *t.BrandID != rc.Brand.ID {
		return Deny
	}
	return Abstain
}

// ByAction dispatches to a predicate keyed on the target's action. Actions
// without an entry abstain.
func ByAction(byAction map[Action]Predicate) Predicate {
	return func(rc *tenant.RequestContext, t Target) Decision {
		p, ok := byAction[t.Action]
		if !ok {
			return Abstain
		}
		return p(rc, t)
	}
}

// Not inverts a predicate's Allow into Deny, leaving abstentions alone.
func Not(p Predicate) Predicate {
	return func(rc *tenant.RequestContext, t Target) Decision {
		switch p(rc, t) {
		case Allow:
			return Deny
		case Deny:
			return Allow
		default:
			return Abstain
		}
	}
}

// AllOf allows only when every predicate allows; a single deny denies.
func AllOf(preds ...Predicate) Predicate {
	return func(rc *tenant.RequestContext, t Target) Decision {
		for _, p := range preds {
			switch p(rc, t) {
			case Deny:
				return Deny
			case Abstain:
				return Abstain
			}
		}
		if len(preds) == 0 {
			return Abstain
		}
		return Allow
	}
}

// AnyOf allows when at least one predicate allows; a deny still overrides.
func AnyOf(preds ...Predicate) Predicate {
	return func(rc *tenant.RequestContext, t Target) Decision {
		result := Abstain
		for _, p := range preds {
			switch p(rc, t) {
			case Deny:
				return Deny
			case Allow:
				result = Allow
			}
		}
		return result
	}
}
