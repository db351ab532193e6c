package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/megahub-io/megahub/internal/alert/domain"
	alertrepo "github.com/megahub-io/megahub/internal/alert/repository"
	alertservice "github.com/megahub-io/megahub/internal/alert/service"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	"github.com/megahub-io/megahub/internal/clock"
	companydomain "github.com/megahub-io/megahub/internal/company/domain"
	companyrepo "github.com/megahub-io/megahub/internal/company/repository"
	"github.com/megahub-io/megahub/internal/config"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
	slotsrepo "github.com/megahub-io/megahub/internal/slots/repository"
	slotsservice "github.com/megahub-io/megahub/internal/slots/service"
	pkgdb "github.com/megahub-io/megahub/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupReconciler(t *testing.T) (*Reconciler, *gorm.DB, *snowflake.Node, slotsdomain.Service) {
	t.Helper()

	db, err := pkgdb.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&companydomain.Company{},
		&branddomain.Brand{},
		&identitydomain.User{},
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

	r := New(Params{
		Log:       zap.NewNop(),
		Clock:     clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Companies: companyrepo.Provide(db),
		SlotsSvc:  slots,
	}, time.Minute)
	return r, db, node, slots
}

func seedCompany(t *testing.T, db *gorm.DB, node *snowflake.Node, slots slotsdomain.Service, liveBrands, counted int) snowflake.ID {
	t.Helper()
	company := &companydomain.Company{
		ID:          node.Generate(),
		Name:        node.Generate().String(),
		AdminUserID: node.Generate(),
	}
	require.NoError(t, db.Create(company).Error)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return slots.CreateForCompany(context.Background(), tx, company.ID, 10, 10)
	}))

	for i := 0; i < liveBrands; i++ {
		require.NoError(t, db.Create(&branddomain.Brand{
			ID:        node.Generate(),
			CompanyID: company.ID,
			Name:      node.Generate().String(),
			Slug:      node.Generate().String(),
			IsActive:  true,
		}).Error)
	}
	// Counter planted out of step with the live rows to simulate drift.
	require.NoError(t, db.Model(&slotsdomain.Slots{}).
		Where("company_id = ?", company.ID).
		Update("current_brands_count", counted).Error)
	return company.ID
}

func TestRunOnceRepairsEveryCompany(t *testing.T) {
	r, db, node, slots := setupReconciler(t)

	drifted := seedCompany(t, db, node, slots, 2, 5)
	clean := seedCompany(t, db, node, slots, 3, 3)

	r.RunOnce(context.Background())

	usage, err := slots.Usage(context.Background(), drifted)
	require.NoError(t, err)
	require.Equal(t, 2, usage.CurrentBrandsCount)

	usage, err = slots.Usage(context.Background(), clean)
	require.NoError(t, err)
	require.Equal(t, 3, usage.CurrentBrandsCount)
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	r, db, node, slots := setupReconciler(t)

	// A company row without a ledger makes Reconcile fail for it.
	broken := &companydomain.Company{
		ID:          node.Generate(),
		Name:        "broken",
		AdminUserID: node.Generate(),
	}
	require.NoError(t, db.Create(broken).Error)
	drifted := seedCompany(t, db, node, slots, 1, 9)

	r.RunOnce(context.Background())

	usage, err := slots.Usage(context.Background(), drifted)
	require.NoError(t, err)
	require.Equal(t, 1, usage.CurrentBrandsCount)
}
