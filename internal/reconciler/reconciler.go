// Package reconciler periodically recounts live resources per company and
// repairs slot counter drift left behind by crashes between a row write and
// its counter update.
package reconciler

import (
	"context"
	"time"

	"github.com/megahub-io/megahub/internal/clock"
	companydomain "github.com/megahub-io/megahub/internal/company/domain"
	obsmetrics "github.com/megahub-io/megahub/internal/observability/metrics"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Companies companydomain.Repository
	SlotsSvc  slotsdomain.Service
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Reconciler struct {
	log       *zap.Logger
	clock     clock.Clock
	interval  time.Duration
	companies companydomain.Repository
	slotsSvc  slotsdomain.Service
	metrics   *obsmetrics.Metrics
}

func New(p Params, interval time.Duration) *Reconciler {
	return &Reconciler{
		log:       p.Log.Named("reconciler"),
		clock:     p.Clock,
		interval:  interval,
		companies: p.Companies,
		slotsSvc:  p.SlotsSvc,
		metrics:   p.Metrics,
	}
}

// RunForever loops until ctx is cancelled. Each pass walks every company;
// one company failing never stops the sweep.
func (r *Reconciler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reconciliation sweep.
func (r *Reconciler) RunOnce(ctx context.Context) {
	started := r.clock.Now()

	ids, err := r.companies.ListIDs(ctx)
	if err != nil {
		r.log.Error("list companies", zap.Error(err))
		return
	}

	repaired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.slotsSvc.Reconcile(ctx, id); err != nil {
			r.log.Warn("reconcile company",
				zap.String("company_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		repaired++
	}

	r.metrics.RecordReconcileSweep(ctx, len(ids))
	r.log.Info("reconcile sweep done",
		zap.Int("companies", len(ids)),
		zap.Int("reconciled", repaired),
		zap.Duration("took", r.clock.Now().Sub(started)),
	)
}
