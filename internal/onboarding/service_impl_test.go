package onboarding

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/megahub-io/megahub/internal/alert/domain"
	alertrepo "github.com/megahub-io/megahub/internal/alert/repository"
	alertservice "github.com/megahub-io/megahub/internal/alert/service"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	brandrepo "github.com/megahub-io/megahub/internal/brand/repository"
	companydomain "github.com/megahub-io/megahub/internal/company/domain"
	companyrepo "github.com/megahub-io/megahub/internal/company/repository"
	"github.com/megahub-io/megahub/internal/config"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	identityrepo "github.com/megahub-io/megahub/internal/identity/repository"
	"github.com/megahub-io/megahub/internal/onboarding/domain"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
	slotsrepo "github.com/megahub-io/megahub/internal/slots/repository"
	slotsservice "github.com/megahub-io/megahub/internal/slots/service"
	pkgdb "github.com/megahub-io/megahub/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type onboardingFixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	slots slotsdomain.Service
	svc   domain.Service
}

func setupOnboarding(t *testing.T) *onboardingFixture {
	t.Helper()

	db, err := pkgdb.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&identitydomain.User{},
		&companydomain.Company{},
		&branddomain.Brand{},
		&branddomain.BrandMember{},
		&slotsdomain.Slots{},
		&alertdomain.UsageAlert{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	alerts := alertservice.New(alertservice.Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  alertrepo.Provide(db),
	})
	slots := slotsservice.New(slotsservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       slotsrepo.Provide(db),
		Alerts:     alerts,
		Thresholds: config.NewStaticAlertThresholdHolder(config.AlertThresholds{WarningPct: 0.8, CriticalPct: 1.0}),
	})

	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Cfg:       &config.Config{DefaultBrandsSlots: 2, DefaultUsersSlots: 5},
		Users:     identityrepo.Provide(db),
		Companies: companyrepo.Provide(db),
		Brands:    brandrepo.Provide(db),
		Slots:     slots,
	})
	return &onboardingFixture{db: db, node: node, slots: slots, svc: svc}
}

func (f *onboardingFixture) newUser(t *testing.T, kind identitydomain.UserKind) *identitydomain.User {
	t.Helper()
	user := &identitydomain.User{
		ID:          f.node.Generate(),
		IdentityKey: f.node.Generate().String(),
		DisplayName: "Jo Baker",
		Kind:        kind,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func TestCreateSoloBusinessProvisionsEverything(t *testing.T) {
	f := setupOnboarding(t)
	user := f.newUser(t, identitydomain.KindBrandMember)

	result, err := f.svc.CreateSoloBusiness(context.Background(), user.ID, domain.Request{
		CompanyName:  "Baker Goods",
		BillingEmail: "jo@example.com",
	})
	require.NoError(t, err)
	require.True(t, result.Created)
	require.NotEmpty(t, result.CompanyID)
	require.NotEmpty(t, result.BrandID)

	companyID, err := snowflake.ParseString(result.CompanyID)
	require.NoError(t, err)

	var company companydomain.Company
	require.NoError(t, f.db.First(&company, "id = ?", companyID).Error)
	require.Equal(t, "Baker Goods", company.Name)
	require.Equal(t, user.ID, company.AdminUserID)
	require.NotNil(t, company.TrialExpiresAt)

	// Brand name defaults to the company name.
	var brand branddomain.Brand
	require.NoError(t, f.db.First(&brand, "company_id = ?", companyID).Error)
	require.Equal(t, "Baker Goods", brand.Name)
	require.NotNil(t, brand.AdminUserID)
	require.Equal(t, user.ID, *brand.AdminUserID)

	var members int64
	require.NoError(t, f.db.Model(&branddomain.BrandMember{}).
		Where("brand_id = ? AND user_id = ?", brand.ID, user.ID).
		Count(&members).Error)
	require.EqualValues(t, 1, members)

	// The ledger starts with the first brand and the admin seat reserved.
	usage, err := f.slots.Usage(context.Background(), companyID)
	require.NoError(t, err)
	require.Equal(t, 2, usage.BrandsSlots)
	require.Equal(t, 5, usage.UsersSlots)
	require.Equal(t, 1, usage.CurrentBrandsCount)
	require.Equal(t, 1, usage.CurrentUsersCount)

	var reloaded identitydomain.User
	require.NoError(t, f.db.First(&reloaded, "id = ?", user.ID).Error)
	require.Equal(t, identitydomain.KindCompanyAdmin, reloaded.Kind)
	require.NotNil(t, reloaded.CompanyID)
	require.Equal(t, companyID, *reloaded.CompanyID)
}

func TestCreateSoloBusinessRepeatIsNotEligible(t *testing.T) {
	f := setupOnboarding(t)
	user := f.newUser(t, identitydomain.KindBrandMember)

	first, err := f.svc.CreateSoloBusiness(context.Background(), user.ID, domain.Request{CompanyName: "Baker Goods"})
	require.NoError(t, err)
	require.True(t, first.Created)

	// Once onboarded the user is no longer eligible; nothing extra is
	// provisioned.
	_, err = f.svc.CreateSoloBusiness(context.Background(), user.ID, domain.Request{CompanyName: "Another Name"})
	require.ErrorIs(t, err, domain.ErrNotEligible)

	var companies int64
	require.NoError(t, f.db.Model(&companydomain.Company{}).Count(&companies).Error)
	require.EqualValues(t, 1, companies)
}

func TestCreateSoloBusinessRejectsPlatformUsers(t *testing.T) {
	f := setupOnboarding(t)
	staff := f.newUser(t, identitydomain.KindPlatformStaff)

	_, err := f.svc.CreateSoloBusiness(context.Background(), staff.ID, domain.Request{CompanyName: "Nope"})
	require.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = f.svc.CreateSoloBusiness(context.Background(), f.node.Generate(), domain.Request{CompanyName: "Ghost"})
	require.ErrorIs(t, err, domain.ErrNotEligible)
}

func TestCreateSoloBusinessValidatesInput(t *testing.T) {
	f := setupOnboarding(t)
	user := f.newUser(t, identitydomain.KindBrandMember)

	_, err := f.svc.CreateSoloBusiness(context.Background(), user.ID, domain.Request{CompanyName: "  "})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCreateSoloBusinessOverridesBrandName(t *testing.T) {
	f := setupOnboarding(t)
	user := f.newUser(t, identitydomain.KindBrandMember)

	result, err := f.svc.CreateSoloBusiness(context.Background(), user.ID, domain.Request{
		CompanyName: "Baker Goods",
		BrandName:   "Flour Power",
	})
	require.NoError(t, err)

	brandID, err := snowflake.ParseString(result.BrandID)
	require.NoError(t, err)
	var brand branddomain.Brand
	require.NoError(t, f.db.First(&brand, "id = ?", brandID).Error)
	require.Equal(t, "Flour Power", brand.Name)
	require.Equal(t, "flour-power", brand.Slug)
}

func TestStatusTracksProgress(t *testing.T) {
	f := setupOnboarding(t)
	user := f.newUser(t, identitydomain.KindBrandMember)

	before, err := f.svc.Status(context.Background(), user.ID)
	require.NoError(t, err)
	require.False(t, before.HasCompany)
	require.False(t, before.IsComplete)

	_, err = f.svc.CreateSoloBusiness(context.Background(), user.ID, domain.Request{CompanyName: "Baker Goods"})
	require.NoError(t, err)

	after, err := f.svc.Status(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, after.HasCompany)
	require.True(t, after.HasBrand)
	require.Equal(t, 1, after.BrandCount)
	require.True(t, after.IsComplete)
}

func TestTriggerFallbackRestoresMissingBrand(t *testing.T) {
	f := setupOnboarding(t)
	user := f.newUser(t, identitydomain.KindBrandMember)

	result, err := f.svc.CreateSoloBusiness(context.Background(), user.ID, domain.Request{CompanyName: "Baker Goods"})
	require.NoError(t, err)
	companyID, err := snowflake.ParseString(result.CompanyID)
	require.NoError(t, err)
	brandID, err := snowflake.ParseString(result.BrandID)
	require.NoError(t, err)

	// Simulate an interrupted run that never wrote the brand.
	require.NoError(t, f.db.Delete(&branddomain.Brand{}, "id = ?", brandID).Error)
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return f.slots.Release(context.Background(), tx, companyID, slotsdomain.KindBrands, 1)
	}))

	repaired, err := f.svc.TriggerFallback(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, repaired.Created)
	require.Equal(t, result.CompanyID, repaired.CompanyID)
	require.NotEqual(t, result.BrandID, repaired.BrandID)

	usage, err := f.slots.Usage(context.Background(), companyID)
	require.NoError(t, err)
	require.Equal(t, 1, usage.CurrentBrandsCount)
}

func TestTriggerFallbackIsNoOpWhenComplete(t *testing.T) {
	f := setupOnboarding(t)
	user := f.newUser(t, identitydomain.KindBrandMember)

	result, err := f.svc.CreateSoloBusiness(context.Background(), user.ID, domain.Request{CompanyName: "Baker Goods"})
	require.NoError(t, err)

	again, err := f.svc.TriggerFallback(context.Background(), user.ID)
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, result.BrandID, again.BrandID)
}

func TestTriggerFallbackStartsFromScratch(t *testing.T) {
	f := setupOnboarding(t)
	user := f.newUser(t, identitydomain.KindBrandMember)

	// No company yet: the fallback runs full onboarding off the display name.
	result, err := f.svc.TriggerFallback(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, result.Created)

	companyID, err := snowflake.ParseString(result.CompanyID)
	require.NoError(t, err)
	var company companydomain.Company
	require.NoError(t, f.db.First(&company, "id = ?", companyID).Error)
	require.Equal(t, "Jo Baker", company.Name)
}
