package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/megahub-io/megahub/internal/alert/domain"
	"github.com/megahub-io/megahub/internal/config"
	"github.com/megahub-io/megahub/internal/feature/domain"
	obsmetrics "github.com/megahub-io/megahub/internal/observability/metrics"
	"github.com/megahub-io/megahub/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Alerts     alertdomain.Service
	Thresholds *config.AlertThresholdHolder
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	alerts     alertdomain.Service
	thresholds *config.AlertThresholdHolder
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("feature.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		alerts:     p.Alerts,
		thresholds: p.Thresholds,
		metrics:    p.Metrics,
	}
}

func (s *Service) Active(ctx context.Context, companyID snowflake.ID) ([]domain.ActiveFeature, error) {
	grants, err := s.repo.ListGrantsByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.repo.ListFeatures(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]*domain.Feature, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	now := time.Now().UTC()
	out := make([]domain.ActiveFeature, 0, len(grants))
	for i := range grants {
		grant := &grants[i]
		if !grant.Live(now) {
			continue
		}
		feature := byID[grant.FeatureID]
		if feature == nil {
			continue
		}
		out = append(out, domain.ActiveFeature{
			Key:          feature.Key,
			Name:         feature.Name,
			UsageLimit:   grant.UsageLimit,
			CurrentUsage: grant.CurrentUsage,
			ExpiresAt:    grant.ExpiresAt,
		})
	}
	return out, nil
}

func (s *Service) IsEnabled(ctx context.Context, companyID snowflake.ID, key string) (bool, error) {
	feature, err := s.feature(ctx, key)
	if err != nil {
		return false, err
	}

	grant, err := s.repo.FindGrant(ctx, companyID, feature.ID)
	if err != nil {
		return false, err
	}
	if grant == nil {
		return false, nil
	}
	return grant.Live(time.Now().UTC()), nil
}

func (s *Service) CheckAndIncrement(ctx context.Context, companyID snowflake.ID, key string, quantity int, metadata map[string]any) (*domain.UsageResult, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	feature, err := s.feature(ctx, key)
	if err != nil {
		return nil, err
	}

	var result *domain.UsageResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		grant, err := repo.LockGrant(ctx, companyID, feature.ID)
		if err != nil {
			return err
		}
		if grant == nil || !grant.Live(time.Now().UTC()) {
			s.metrics.RecordFeatureCheck(ctx, "disabled")
			return domain.ErrFeatureDisabled
		}

		if quantity == 0 {
			// A probe, not a consumption: no counter move, no log row.
			s.metrics.RecordFeatureCheck(ctx, "ok")
			result = toUsageResult(key, grant)
			return nil
		}

		before := grant.CurrentUsage
		after := before + quantity
		if grant.UsageLimit != nil && after > *grant.UsageLimit {
			s.metrics.RecordFeatureCheck(ctx, "rejected")
			return domain.ErrUsageLimitReached
		}

		grant.CurrentUsage = after
		grant.UpdatedAt = time.Now().UTC()
		if err := repo.UpdateGrant(ctx, grant); err != nil {
			return err
		}

		if err := repo.CreateUsageLog(ctx, &domain.FeatureUsageLog{
			ID:        s.genID.Generate(),
			CompanyID: companyID,
			FeatureID: feature.ID,
			Action:    actionConsume,
			Quantity:  quantity,
			UserID:    actorFromContext(ctx),
			Metadata:  datatypes.JSONMap(metadata),
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		if grant.UsageLimit != nil {
			if err := s.emitThresholdAlerts(ctx, tx, companyID, key, *grant.UsageLimit, after); err != nil {
				return err
			}
		}

		s.metrics.RecordFeatureCheck(ctx, "ok")
		result = toUsageResult(key, grant)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) UsagePercentage(ctx context.Context, companyID snowflake.ID, key string) (float64, error) {
	feature, err := s.feature(ctx, key)
	if err != nil {
		return 0, err
	}

	grant, err := s.repo.FindGrant(ctx, companyID, feature.ID)
	if err != nil {
		return 0, err
	}
	if grant == nil {
		return 0, domain.ErrNotFound
	}
	if grant.UsageLimit == nil || *grant.UsageLimit <= 0 {
		return 0, nil
	}
	return float64(grant.CurrentUsage) / float64(*grant.UsageLimit), nil
}

func (s *Service) Grant(ctx context.Context, companyID snowflake.ID, req domain.GrantRequest) (*domain.ActiveFeature, error) {
	feature, err := s.feature(ctx, req.Key)
	if err != nil {
		return nil, err
	}

	limit := req.UsageLimit
	if limit == nil {
		limit = feature.DefaultLimit
	}

	var grant *domain.CompanyFeature
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		grant, err = repo.LockGrant(ctx, companyID, feature.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if grant == nil {
			grant = &domain.CompanyFeature{
				ID:         s.genID.Generate(),
				CompanyID:  companyID,
				FeatureID:  feature.ID,
				Enabled:    true,
				UsageLimit: limit,
				ExpiresAt:  req.ExpiresAt,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			return repo.CreateGrant(ctx, grant)
		}

		// Re-granting keeps the consumed counter; only the terms change.
		grant.Enabled = true
		grant.UsageLimit = limit
		grant.ExpiresAt = req.ExpiresAt
		grant.UpdatedAt = now
		return repo.UpdateGrant(ctx, grant)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("feature granted",
		zap.String("company_id", companyID.String()),
		zap.String("key", feature.Key),
	)
	return &domain.ActiveFeature{
		Key:          feature.Key,
		Name:         feature.Name,
		UsageLimit:   grant.UsageLimit,
		CurrentUsage: grant.CurrentUsage,
		ExpiresAt:    grant.ExpiresAt,
	}, nil
}

func (s *Service) Revoke(ctx context.Context, companyID snowflake.ID, key string) error {
	feature, err := s.feature(ctx, key)
	if err != nil {
		return err
	}

	grant, err := s.repo.FindGrant(ctx, companyID, feature.ID)
	if err != nil {
		return err
	}
	if grant == nil {
		return domain.ErrNotFound
	}

	grant.Enabled = false
	grant.UpdatedAt = time.Now().UTC()
	return s.repo.UpdateGrant(ctx, grant)
}

func (s *Service) ListCatalog(ctx context.Context) ([]domain.Feature, error) {
	return s.repo.ListFeatures(ctx)
}

func (s *Service) feature(ctx context.Context, key string) (*domain.Feature, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrInvalidKey
	}
	feature, err := s.repo.FindFeatureByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, domain.ErrNotFound
	}
	return feature, nil
}

// emitThresholdAlerts mirrors the slot ledger's threshold rules. Alert kinds
// carry the feature key so grants alert independently of each other.
func (s *Service) emitThresholdAlerts(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, key string, limit, after int) error {
	if limit <= 0 {
		return nil
	}

	th := s.thresholds.Get()
	afterPct := float64(after) / float64(limit)

	if afterPct >= th.WarningPct {
		if err := s.alerts.EnsureActive(ctx, tx, alertdomain.EnsureRequest{
			CompanyID:      companyID,
			Kind:           featureAlertKind(alertdomain.KindFeatureWarning, key),
			ThresholdValue: th.WarningPct,
			CurrentValue:   afterPct,
			Message:        fmt.Sprintf("feature %s usage at %d of %d", key, after, limit),
		}); err != nil {
			return err
		}
	}
	if afterPct >= th.CriticalPct {
		if err := s.alerts.EnsureActive(ctx, tx, alertdomain.EnsureRequest{
			CompanyID:      companyID,
			Kind:           featureAlertKind(alertdomain.KindFeatureLimitReached, key),
			ThresholdValue: th.CriticalPct,
			CurrentValue:   afterPct,
			Message:        fmt.Sprintf("feature %s limit reached (%d of %d)", key, after, limit),
		}); err != nil {
			return err
		}
	}
	return nil
}

func featureAlertKind(kind, key string) string {
	return kind + ":" + key
}

const actionConsume = "consume"

// actorFromContext extracts the acting user for the usage trail. Background
// jobs run without a request scope and log no actor.
func actorFromContext(ctx context.Context) *snowflake.ID {
	rc, ok := tenant.FromContext(ctx)
	if !ok || rc.User == nil {
		return nil
	}
	id := rc.User.ID
	return &id
}

func toUsageResult(key string, grant *domain.CompanyFeature) *domain.UsageResult {
	result := &domain.UsageResult{
		Key:          key,
		UsageLimit:   grant.UsageLimit,
		CurrentUsage: grant.CurrentUsage,
	}
	if grant.UsageLimit != nil && *grant.UsageLimit > 0 {
		pct := float64(grant.CurrentUsage) / float64(*grant.UsageLimit)
		result.UsagePct = &pct
	}
	return result
}
