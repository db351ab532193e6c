package reconciler

import (
	"context"

	"github.com/megahub-io/megahub/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciler",
	fx.Provide(func(p Params, cfg *config.Config) *Reconciler {
		return New(p, cfg.ReconcileInterval)
	}),
	fx.Invoke(Start),
)

func Start(lc fx.Lifecycle, cfg *config.Config, rec *Reconciler) {
	if cfg.ReconcileInterval <= 0 {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runCtx, cancel := context.WithCancel(context.Background())

			go rec.RunForever(runCtx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
