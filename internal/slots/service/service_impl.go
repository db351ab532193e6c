package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/megahub-io/megahub/internal/alert/domain"
	"github.com/megahub-io/megahub/internal/config"
	obsmetrics "github.com/megahub-io/megahub/internal/observability/metrics"
	"github.com/megahub-io/megahub/internal/slots/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:        p.Log.Named("slots.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		alerts:     p.Alerts,
		thresholds: p.Thresholds,
		metrics:    p.Metrics,
	}
}

func (s *Service) CreateForCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, brandsSlots, usersSlots int) error {
	if companyID == 0 {
		return domain.ErrNotFound
	}
	if brandsSlots < 0 || usersSlots < 0 {
		return domain.ErrInvalidLimit
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	return repo.Create(ctx, &domain.Slots{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		BrandsSlots: brandsSlots,
		UsersSlots:  usersSlots,
	})
}

func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, kind domain.ResourceKind, n int) error {
	if err := validKind(kind); err != nil {
		return err
	}
	if n < 0 {
		return domain.ErrInvalidQuantity
	}
	if n == 0 {
		return nil
	}
	if tx == nil {
		return domain.ErrInvariantViolation
	}

	repo := s.repo.WithTx(tx)
	slots, err := repo.LockByCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if slots == nil {
		return domain.ErrNotFound
	}

	limit := slots.Limit(kind)
	before := slots.Current(kind)
	after := before + n
	if after > limit {
		s.metrics.RecordSlotReservation(ctx, string(kind), "rejected")
		return domain.ErrCapacityExceeded
	}

	slots.SetCurrent(kind, after)
	if err := repo.UpdateCounters(ctx, slots); err != nil {
		return err
	}

	s.metrics.RecordSlotReservation(ctx, string(kind), "ok")
	return s.emitThresholdAlerts(ctx, tx, companyID, kind, limit, after)
}

func (s *Service) Release(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, kind domain.ResourceKind, n int) error {
	if err := validKind(kind); err != nil {
		return err
	}
	if n < 0 {
		return domain.ErrInvalidQuantity
	}
	if n == 0 {
		return nil
	}
	if tx == nil {
		return domain.ErrInvariantViolation
	}

	repo := s.repo.WithTx(tx)
	slots, err := repo.LockByCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if slots == nil {
		return domain.ErrNotFound
	}

	limit := slots.Limit(kind)
	before := slots.Current(kind)
	after := before - n
	if after < 0 {
		// Release never fails; clamp and leave a trace for reconciliation.
		s.log.Error("slot release would go negative",
			zap.String("company_id", companyID.String()),
			zap.String("kind", string(kind)),
			zap.Int("current", before),
			zap.Int("released", n),
		)
		after = 0
	}

	slots.SetCurrent(kind, after)
	if err := repo.UpdateCounters(ctx, slots); err != nil {
		return err
	}

	s.metrics.RecordSlotRelease(ctx, string(kind))
	return s.resolveClearedAlerts(ctx, tx, companyID, kind, limit, after)
}

func (s *Service) AssertCapacity(ctx context.Context, companyID snowflake.ID, kind domain.ResourceKind) error {
	if err := validKind(kind); err != nil {
		return err
	}

	slots, err := s.repo.FindByCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if slots == nil {
		return domain.ErrNotFound
	}
	if slots.Current(kind)+1 > slots.Limit(kind) {
		return domain.ErrCapacityExceeded
	}
	return nil
}

func (s *Service) Usage(ctx context.Context, companyID snowflake.ID) (*domain.Usage, error) {
	slots, err := s.repo.FindByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if slots == nil {
		return nil, domain.ErrNotFound
	}
	return toUsage(slots), nil
}

// Reconcile recomputes the counters from the authoritative brand and user
// rows. Drift is logged as an invariant violation before being corrected.
func (s *Service) Reconcile(ctx context.Context, companyID snowflake.ID) (*domain.Usage, error) {
	var usage *domain.Usage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		slots, err := repo.LockByCompany(ctx, companyID)
		if err != nil {
			return err
		}
		if slots == nil {
			return domain.ErrNotFound
		}

		brands, err := repo.CountLiveBrands(ctx, companyID)
		if err != nil {
			return err
		}
		users, err := repo.CountUsers(ctx, companyID)
		if err != nil {
			return err
		}

		if int(brands) != slots.CurrentBrandsCount || int(users) != slots.CurrentUsersCount {
			s.log.Error("slot counters drifted from authoritative rows",
				zap.String("company_id", companyID.String()),
				zap.Int("recorded_brands", slots.CurrentBrandsCount),
				zap.Int64("actual_brands", brands),
				zap.Int("recorded_users", slots.CurrentUsersCount),
				zap.Int64("actual_users", users),
			)
			if err := s.alerts.EnsureActive(ctx, tx, alertdomain.EnsureRequest{
				CompanyID:    companyID,
				Kind:         alertdomain.KindInvariantViolation,
				CurrentValue: float64(brands),
				Message:      "slot counters reconciled after drift",
			}); err != nil {
				return err
			}
		}

		slots.CurrentBrandsCount = int(brands)
		slots.CurrentUsersCount = int(users)
		if err := repo.UpdateCounters(ctx, slots); err != nil {
			return err
		}

		usage = toUsage(slots)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

func (s *Service) SetLimits(ctx context.Context, companyID snowflake.ID, req domain.SetLimitsRequest) (*domain.Usage, error) {
	if req.BrandsSlots != nil && *req.BrandsSlots < 0 {
		return nil, domain.ErrInvalidLimit
	}
	if req.UsersSlots != nil && *req.UsersSlots < 0 {
		return nil, domain.ErrInvalidLimit
	}

	var usage *domain.Usage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		slots, err := repo.LockByCompany(ctx, companyID)
		if err != nil {
			return err
		}
		if slots == nil {
			return domain.ErrNotFound
		}

		if req.BrandsSlots != nil {
			slots.BrandsSlots = *req.BrandsSlots
		}
		if req.UsersSlots != nil {
			slots.UsersSlots = *req.UsersSlots
		}
		// Limits may be lowered below current usage; existing resources
		// survive, new reservations fail until usage drops.
		if err := repo.UpdateLimits(ctx, slots); err != nil {
			return err
		}

		usage = toUsage(slots)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// emitThresholdAlerts raises the warning and critical alerts for every
// threshold the counter sits at or above. Re-raising an active alert is a
// no-op, so a counter parked over a threshold keeps exactly one alert.
func (s *Service) emitThresholdAlerts(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, kind domain.ResourceKind, limit, after int) error {
	if limit <= 0 {
		return nil
	}

	th := s.thresholds.Get()
	afterPct := float64(after) / float64(limit)

	if afterPct >= th.WarningPct {
		if err := s.alerts.EnsureActive(ctx, tx, alertdomain.EnsureRequest{
			CompanyID:      companyID,
			Kind:           warningKind(kind),
			ThresholdValue: th.WarningPct,
			CurrentValue:   afterPct,
			Message:        fmt.Sprintf("%s usage at %d of %d slots", kind, after, limit),
		}); err != nil {
			return err
		}
	}
	if afterPct >= th.CriticalPct {
		if err := s.alerts.EnsureActive(ctx, tx, alertdomain.EnsureRequest{
			CompanyID:      companyID,
			Kind:           limitKind(kind),
			ThresholdValue: th.CriticalPct,
			CurrentValue:   afterPct,
			Message:        fmt.Sprintf("%s slots exhausted (%d of %d)", kind, after, limit),
		}); err != nil {
			return err
		}
	}
	return nil
}

// resolveClearedAlerts closes alerts whose threshold is no longer crossed
// after a release.
func (s *Service) resolveClearedAlerts(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, kind domain.ResourceKind, limit, after int) error {
	if limit <= 0 {
		return nil
	}

	th := s.thresholds.Get()
	afterPct := float64(after) / float64(limit)

	if afterPct < th.CriticalPct {
		if err := s.alerts.Resolve(ctx, tx, companyID, limitKind(kind)); err != nil {
			return err
		}
	}
	if afterPct < th.WarningPct {
		if err := s.alerts.Resolve(ctx, tx, companyID, warningKind(kind)); err != nil {
			return err
		}
	}
	return nil
}

func toUsage(slots *domain.Slots) *domain.Usage {
	return &domain.Usage{
		CompanyID:          slots.CompanyID.String(),
		BrandsSlots:        slots.BrandsSlots,
		UsersSlots:         slots.UsersSlots,
		CurrentBrandsCount: slots.CurrentBrandsCount,
		CurrentUsersCount:  slots.CurrentUsersCount,
	}
}

func validKind(kind domain.ResourceKind) error {
	switch kind {
	case domain.KindBrands, domain.KindUsers:
		return nil
	default:
		return domain.ErrInvalidKind
	}
}

func warningKind(kind domain.ResourceKind) string {
	if kind == domain.KindUsers {
		return alertdomain.KindUsersWarning
	}
	return alertdomain.KindBrandsWarning
}

func limitKind(kind domain.ResourceKind) string {
	if kind == domain.KindUsers {
		return alertdomain.KindUsersLimitReached
	}
	return alertdomain.KindBrandsLimitReached
}
