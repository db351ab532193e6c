package authz

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	"github.com/megahub-io/megahub/internal/tenant"
	"github.com/stretchr/testify/require"
)

func testNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func memberContext(node *snowflake.Node) *tenant.RequestContext {
	companyID := node.Generate()
	brandID := node.Generate()
	userID := node.Generate()
	return &tenant.RequestContext{
		User: &identitydomain.User{
			ID:        userID,
			Kind:      identitydomain.KindBrandMember,
			CompanyID: &companyID,
		},
		CompanyID: &companyID,
		Brand: &branddomain.Brand{
			ID:        brandID,
			CompanyID: companyID,
		},
		Source: tenant.SourceHeader,
	}
}

func TestEvaluateNilUser(t *testing.T) {
	err := Evaluate(context.Background(), nil, Target{}, Authenticated)
	require.ErrorIs(t, err, ErrUnauthenticated)

	err = Evaluate(context.Background(), &tenant.RequestContext{}, Target{}, Authenticated)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestEvaluateDefaultDeny(t *testing.T) {
	node := testNode(t)
	rc := memberContext(node)

	// An all-abstain chain denies.
	err := Evaluate(context.Background(), rc, Target{Action: ActionWrite}, PlatformSuperuser, CompanyAdmin)
	require.ErrorIs(t, err, ErrForbidden)

	err = Evaluate(context.Background(), rc, Target{Action: ActionWrite})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestEvaluateDenyOverridesAllow(t *testing.T) {
	node := testNode(t)
	rc := memberContext(node)

	otherBrand := node.Generate()
	target := Target{Action: ActionWrite, BrandID: &otherBrand}

	// BrandScoped would allow, but the cross-brand deny wins.
	err := Evaluate(context.Background(), rc, target, SameBrand, BrandScoped)
	require.ErrorIs(t, err, ErrForbidden)

	sameBrand := rc.Brand.ID
	target.BrandID = &sameBrand
	require.NoError(t, Evaluate(context.Background(), rc, target, SameBrand, BrandScoped))
}

func TestPlatformPredicates(t *testing.T) {
	node := testNode(t)
	staff := &tenant.RequestContext{
		User: &identitydomain.User{ID: node.Generate(), Kind: identitydomain.KindPlatformStaff},
	}
	super := &tenant.RequestContext{
		User: &identitydomain.User{ID: node.Generate(), Kind: identitydomain.KindPlatformSuperuser},
	}

	require.Equal(t, Abstain, PlatformSuperuser(staff, Target{}))
	require.Equal(t, Allow, PlatformSuperuser(super, Target{}))
	require.Equal(t, Allow, PlatformStaff(staff, Target{}))
	require.Equal(t, Allow, PlatformStaff(super, Target{}))

	member := memberContext(node)
	require.Equal(t, Abstain, PlatformStaff(member, Target{}))
}

func TestCompanyAdminRequiresCompanyScope(t *testing.T) {
	node := testNode(t)
	companyID := node.Generate()
	admin := &tenant.RequestContext{
		User: &identitydomain.User{
			ID:        node.Generate(),
			Kind:      identitydomain.KindCompanyAdmin,
			CompanyID: &companyID,
		},
		CompanyID: &companyID,
	}
	require.Equal(t, Allow, CompanyAdmin(admin, Target{}))

	admin.CompanyID = nil
	require.Equal(t, Abstain, CompanyAdmin(admin, Target{}))
}

func TestBrandAdminAndOwner(t *testing.T) {
	node := testNode(t)
	rc := memberContext(node)

	require.Equal(t, Abstain, BrandAdmin(rc, Target{}))

	adminID := rc.User.ID
	rc.Brand.AdminUserID = &adminID
	require.Equal(t, Allow, BrandAdmin(rc, Target{}))

	owner := rc.User.ID
	require.Equal(t, Allow, Owner(rc, Target{OwnerUserID: &owner}))

	stranger := node.Generate()
	require.Equal(t, Abstain, Owner(rc, Target{OwnerUserID: &stranger}))
	require.Equal(t, Abstain, Owner(rc, Target{}))
}

func TestReadOnlyPredicate(t *testing.T) {
	node := testNode(t)
	rc := memberContext(node)

	require.NoError(t, Evaluate(context.Background(), rc, Target{Action: ActionRead}, ReadOnly))
	require.ErrorIs(t, Evaluate(context.Background(), rc, Target{Action: ActionWrite}, ReadOnly), ErrForbidden)
}

func TestCombinators(t *testing.T) {
	node := testNode(t)
	rc := memberContext(node)

	allow := func(*tenant.RequestContext, Target) Decision { return Allow }
	deny := func(*tenant.RequestContext, Target) Decision { return Deny }
	abstain := func(*tenant.RequestContext, Target) Decision { return Abstain }

	require.Equal(t, Deny, Not(allow)(rc, Target{}))
	require.Equal(t, Allow, Not(deny)(rc, Target{}))
	require.Equal(t, Abstain, Not(abstain)(rc, Target{}))

	require.Equal(t, Allow, AllOf(allow, allow)(rc, Target{}))
	require.Equal(t, Abstain, AllOf(allow, abstain)(rc, Target{}))
	require.Equal(t, Deny, AllOf(allow, deny)(rc, Target{}))
	require.Equal(t, Abstain, AllOf()(rc, Target{}))

	require.Equal(t, Allow, AnyOf(abstain, allow)(rc, Target{}))
	require.Equal(t, Deny, AnyOf(allow, deny)(rc, Target{}))
	require.Equal(t, Abstain, AnyOf(abstain, abstain)(rc, Target{}))

	dispatch := ByAction(map[Action]Predicate{
		ActionRead:  allow,
		ActionWrite: deny,
	})
	require.Equal(t, Allow, dispatch(rc, Target{Action: ActionRead}))
	require.Equal(t, Deny, dispatch(rc, Target{Action: ActionWrite}))
	require.Equal(t, Abstain, dispatch(rc, Target{Action: ActionAdmin}))
}
