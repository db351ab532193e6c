// Package metrics exposes application-level instruments for the tenancy kernel.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ServiceName      string
}

// Metrics exposes kernel-level instruments. A nil *Metrics is valid and
// records nothing, so wiring stays optional.
type Metrics struct {
	authzDecisions   metric.Int64Counter
	slotReservations metric.Int64Counter
	slotReleases     metric.Int64Counter
	featureChecks    metric.Int64Counter
	tenantResolves   metric.Int64Counter
	reconcileSweeps  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := otlpmetricgrpc.New(context.Background(),
		otlpmetricgrpc.WithEndpoint(cfg.ExporterEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down meter provider")
			return provider.Shutdown(ctx)
		},
	})

	log.Info("metrics initialized", zap.String("endpoint", cfg.ExporterEndpoint))
	return provider, nil
}

// New configures the kernel metric instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "megahub"
	}
	meter := provider.Meter(name + "/kernel")

	authzDecisions, err := meter.Int64Counter("megahub_authz_decisions_total",
		metric.WithDescription("Authorization decisions by outcome."))
	if err != nil {
		return nil, err
	}
	slotReservations, err := meter.Int64Counter("megahub_slot_reservations_total",
		metric.WithDescription("Slot reservations by resource kind and outcome."))
	if err != nil {
		return nil, err
	}
	slotReleases, err := meter.Int64Counter("megahub_slot_releases_total",
		metric.WithDescription("Slot releases by resource kind."))
	if err != nil {
		return nil, err
	}
	featureChecks, err := meter.Int64Counter("megahub_feature_checks_total",
		metric.WithDescription("Feature gate check-and-increment calls by outcome."))
	if err != nil {
		return nil, err
	}
	tenantResolves, err := meter.Int64Counter("megahub_tenant_resolutions_total",
		metric.WithDescription("Tenant context resolutions by source."))
	if err != nil {
		return nil, err
	}
	reconcileSweeps, err := meter.Int64Counter("megahub_reconcile_sweeps_total",
		metric.WithDescription("Slot reconciliation sweeps completed."))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		authzDecisions:   authzDecisions,
		slotReservations: slotReservations,
		slotReleases:     slotReleases,
		featureChecks:    featureChecks,
		tenantResolves:   tenantResolves,
		reconcileSweeps:  reconcileSweeps,
	}, nil
}

func (m *Metrics) RecordAuthzDecision(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.authzDecisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordSlotReservation(ctx context.Context, kind, outcome string) {
	if m == nil {
		return
	}
	m.slotReservations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordSlotRelease(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.slotReleases.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordFeatureCheck(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.featureChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordTenantResolve(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.tenantResolves.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) RecordReconcileSweep(ctx context.Context, companies int) {
	if m == nil {
		return
	}
	m.reconcileSweeps.Add(ctx, 1, metric.WithAttributes(attribute.Int("companies", companies)))
}
