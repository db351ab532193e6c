package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/megahub-io/megahub/internal/alert/domain"
	"github.com/megahub-io/megahub/internal/alert/repository"
	pkgdb "github.com/megahub-io/megahub/pkg/db"
)

func setupAlertService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := pkgdb.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.UsageAlert{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(db),
	})
	return svc, db, node
}

func TestEnsureActiveKeepsOneRow(t *testing.T) {
	svc, db, node := setupAlertService(t)
	ctx := context.Background()
	companyID := node.Generate()

	req := domain.EnsureRequest{
		CompanyID:      companyID,
		Kind:           domain.KindBrandsWarning,
		ThresholdValue: 0.8,
		CurrentValue:   0.8,
		Message:        "brands usage at 4 of 5 slots",
	}
	require.NoError(t, svc.EnsureActive(ctx, nil, req))
	require.NoError(t, svc.EnsureActive(ctx, nil, req))

	var count int64
	require.NoError(t, db.Model(&domain.UsageAlert{}).
		Where("company_id = ? AND kind = ? AND status = ?",
			companyID, domain.KindBrandsWarning, domain.StatusActive).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestActiveAlertUniquePerCompanyKind(t *testing.T) {
	svc, db, node := setupAlertService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.EnsureActive(ctx, nil, domain.EnsureRequest{
		CompanyID:      companyID,
		Kind:           domain.KindUsersWarning,
		ThresholdValue: 0.8,
		CurrentValue:   0.9,
		Message:        "users usage at 9 of 10 slots",
	}))

	// The schema itself refuses a second active row.
	err := db.Create(&domain.UsageAlert{
		ID:             node.Generate(),
		CompanyID:      companyID,
		Kind:           domain.KindUsersWarning,
		ThresholdValue: 0.8,
		CurrentValue:   0.95,
		Message:        "duplicate",
		Status:         domain.StatusActive,
		CreatedAt:      time.Now().UTC(),
	}).Error
	require.Error(t, err)
	require.True(t, pkgdb.IsDuplicateKeyErr(err))

	// A resolved row frees the slot for the next crossing.
	require.NoError(t, svc.Resolve(ctx, nil, companyID, domain.KindUsersWarning))
	require.NoError(t, svc.EnsureActive(ctx, nil, domain.EnsureRequest{
		CompanyID:      companyID,
		Kind:           domain.KindUsersWarning,
		ThresholdValue: 0.8,
		CurrentValue:   0.9,
		Message:        "users usage at 9 of 10 slots",
	}))

	var total int64
	require.NoError(t, db.Model(&domain.UsageAlert{}).
		Where("company_id = ? AND kind = ?", companyID, domain.KindUsersWarning).
		Count(&total).Error)
	require.EqualValues(t, 2, total)
}

func TestDismissIsTerminal(t *testing.T) {
	svc, db, node := setupAlertService(t)
	ctx := context.Background()
	companyID := node.Generate()

	require.NoError(t, svc.EnsureActive(ctx, nil, domain.EnsureRequest{
		CompanyID:      companyID,
		Kind:           domain.KindFeatureWarning + ":api_calls",
		ThresholdValue: 0.8,
		CurrentValue:   0.85,
		Message:        "feature api_calls usage at 85 of 100",
	}))

	var alert domain.UsageAlert
	require.NoError(t, db.Where("company_id = ?", companyID).First(&alert).Error)

	require.NoError(t, svc.Dismiss(ctx, companyID, alert.ID))
	require.NoError(t, svc.Dismiss(ctx, companyID, alert.ID))

	require.NoError(t, db.First(&alert, "id = ?", alert.ID).Error)
	require.Equal(t, domain.StatusDismissed, alert.Status)
	require.NotNil(t, alert.ResolvedAt)
}
