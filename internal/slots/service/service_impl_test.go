package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/megahub-io/megahub/internal/alert/domain"
	alertrepo "github.com/megahub-io/megahub/internal/alert/repository"
	alertservice "github.com/megahub-io/megahub/internal/alert/service"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	"github.com/megahub-io/megahub/internal/config"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	"github.com/megahub-io/megahub/internal/slots/domain"
	"github.com/megahub-io/megahub/internal/slots/repository"
	pkgdb "github.com/megahub-io/megahub/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupSlotsService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := pkgdb.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Slots{},
		&alertdomain.UsageAlert{},
		&branddomain.Brand{},
		&identitydomain.User{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	alerts := alertservice.New(alertservice.Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  alertrepo.Provide(db),
	})

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(db),
		Alerts:     alerts,
		Thresholds: config.NewStaticAlertThresholdHolder(config.AlertThresholds{WarningPct: 0.8, CriticalPct: 1.0}),
	})
	return svc, db, node
}

func reserveInTx(t *testing.T, db *gorm.DB, svc domain.Service, companyID snowflake.ID, kind domain.ResourceKind, n int) error {
	t.Helper()
	return db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, companyID, kind, n)
	})
}

func releaseInTx(t *testing.T, db *gorm.DB, svc domain.Service, companyID snowflake.ID, kind domain.ResourceKind, n int) error {
	t.Helper()
	return db.Transaction(func(tx *gorm.DB) error {
		return svc.Release(context.Background(), tx, companyID, kind, n)
	})
}

func activeAlertKinds(t *testing.T, db *gorm.DB, companyID snowflake.ID) []string {
	t.Helper()
	var kinds []string
	err := db.Table("usage_alerts").
		Where("company_id = ? AND status = ?", companyID, alertdomain.StatusActive).
		Order("kind ASC").
		Pluck("kind", &kinds).Error
	require.NoError(t, err)
	return kinds
}

func TestReserveAtCapacityBoundary(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 2, 10))

	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 2))

	err := reserveInTx(t, db, svc, companyID, domain.KindBrands, 1)
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	usage, err := svc.Usage(ctx, companyID)
	require.NoError(t, err)
	require.Equal(t, 2, usage.CurrentBrandsCount)
}

func TestReserveRejectionLeavesCounterUntouched(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 3, 10))
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 2))

	// Requesting more than remains must not consume the free slot.
	err := reserveInTx(t, db, svc, companyID, domain.KindBrands, 2)
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	usage, err := svc.Usage(ctx, companyID)
	require.NoError(t, err)
	require.Equal(t, 2, usage.CurrentBrandsCount)

	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 1))
}

func TestReserveEmitsThresholdAlerts(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 10, 5))

	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindUsers, 3))
	require.Empty(t, activeAlertKinds(t, db, companyID))

	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindUsers, 1))
	require.Equal(t, []string{alertdomain.KindUsersWarning}, activeAlertKinds(t, db, companyID))

	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindUsers, 1))
	require.Equal(t,
		[]string{alertdomain.KindUsersLimitReached, alertdomain.KindUsersWarning},
		activeAlertKinds(t, db, companyID))
}

func TestReserveCrossingBothThresholdsAtOnce(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 5, 10))

	// 0 -> 5 of 5 jumps past warning straight to the limit; both fire.
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 5))
	require.Equal(t,
		[]string{alertdomain.KindBrandsLimitReached, alertdomain.KindBrandsWarning},
		activeAlertKinds(t, db, companyID))
}

func TestReserveAfterLimitShrinkRaisesMissedAlerts(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 10, 10))
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 4))

	// Shrinking the limit parks the counter over the warning threshold
	// with no alert on file.
	five := 5
	_, err := svc.SetLimits(ctx, companyID, domain.SetLimitsRequest{BrandsSlots: &five})
	require.NoError(t, err)
	require.Empty(t, activeAlertKinds(t, db, companyID))

	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 1))
	require.Equal(t,
		[]string{alertdomain.KindBrandsLimitReached, alertdomain.KindBrandsWarning},
		activeAlertKinds(t, db, companyID))
}

func TestRepeatedCrossingKeepsOneActiveAlert(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 5, 10))
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 4))
	require.NoError(t, releaseInTx(t, db, svc, companyID, domain.KindBrands, 1))
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 1))
	require.NoError(t, releaseInTx(t, db, svc, companyID, domain.KindBrands, 1))
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 1))

	var count int64
	require.NoError(t, db.Table("usage_alerts").
		Where("company_id = ? AND kind = ? AND status = ?",
			companyID, alertdomain.KindBrandsWarning, alertdomain.StatusActive).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestReleaseClampsAtZero(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 5, 5))
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 1))

	require.NoError(t, releaseInTx(t, db, svc, companyID, domain.KindBrands, 3))

	usage, err := svc.Usage(ctx, companyID)
	require.NoError(t, err)
	require.Equal(t, 0, usage.CurrentBrandsCount)
}

func TestReleaseResolvesClearedAlerts(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 5, 10))
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 5))
	require.Len(t, activeAlertKinds(t, db, companyID), 2)

	require.NoError(t, releaseInTx(t, db, svc, companyID, domain.KindBrands, 1))
	require.Equal(t, []string{alertdomain.KindBrandsWarning}, activeAlertKinds(t, db, companyID))

	require.NoError(t, releaseInTx(t, db, svc, companyID, domain.KindBrands, 2))
	require.Empty(t, activeAlertKinds(t, db, companyID))
}

func TestReserveValidation(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 5, 5))

	require.ErrorIs(t, reserveInTx(t, db, svc, companyID, "widgets", 1), domain.ErrInvalidKind)
	require.ErrorIs(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, -1), domain.ErrInvalidQuantity)
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 0))
	require.ErrorIs(t, svc.Reserve(ctx, nil, companyID, domain.KindBrands, 1), domain.ErrInvariantViolation)
	require.ErrorIs(t, reserveInTx(t, db, svc, node.Generate(), domain.KindBrands, 1), domain.ErrNotFound)
}

func TestReconcileRepairsDrift(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 10, 10))

	// Two live brands and one deleted one; the ledger says zero.
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&branddomain.Brand{
			ID:        node.Generate(),
			CompanyID: companyID,
			Name:      node.Generate().String(),
			Slug:      node.Generate().String(),
		}).Error)
	}
	require.NoError(t, db.Create(&branddomain.Brand{
		ID:        node.Generate(),
		CompanyID: companyID,
		Name:      node.Generate().String(),
		Slug:      node.Generate().String(),
		IsDeleted: true,
	}).Error)

	usage, err := svc.Reconcile(ctx, companyID)
	require.NoError(t, err)
	require.Equal(t, 2, usage.CurrentBrandsCount)
	require.Equal(t, 0, usage.CurrentUsersCount)

	require.Contains(t, activeAlertKinds(t, db, companyID), alertdomain.KindInvariantViolation)
}

func TestReconcileCleanLedgerRaisesNoAlert(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 10, 10))

	usage, err := svc.Reconcile(ctx, companyID)
	require.NoError(t, err)
	require.Equal(t, 0, usage.CurrentBrandsCount)
	require.Empty(t, activeAlertKinds(t, db, companyID))
}

func TestSetLimitsBelowCurrentUsage(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 5, 5))
	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 3))

	one := 1
	usage, err := svc.SetLimits(ctx, companyID, domain.SetLimitsRequest{BrandsSlots: &one})
	require.NoError(t, err)
	require.Equal(t, 1, usage.BrandsSlots)
	require.Equal(t, 3, usage.CurrentBrandsCount)

	// Existing resources survive; new reservations fail until usage drops.
	err = reserveInTx(t, db, svc, companyID, domain.KindBrands, 1)
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	negative := -1
	_, err = svc.SetLimits(ctx, companyID, domain.SetLimitsRequest{UsersSlots: &negative})
	require.ErrorIs(t, err, domain.ErrInvalidLimit)
}

func TestAssertCapacityProbe(t *testing.T) {
	svc, db, node := setupSlotsService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.CreateForCompany(ctx, nil, companyID, 1, 5))
	require.NoError(t, svc.AssertCapacity(ctx, companyID, domain.KindBrands))

	require.NoError(t, reserveInTx(t, db, svc, companyID, domain.KindBrands, 1))
	require.ErrorIs(t, svc.AssertCapacity(ctx, companyID, domain.KindBrands), domain.ErrCapacityExceeded)
}
