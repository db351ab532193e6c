package feature

import (
	"github.com/megahub-io/megahub/internal/feature/repository"
	"github.com/megahub-io/megahub/internal/feature/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feature.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
