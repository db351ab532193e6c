package brand

import (
	"github.com/megahub-io/megahub/internal/brand/repository"
	"github.com/megahub-io/megahub/internal/brand/service"
	"go.uber.org/fx"
)

var Module = fx.Module("brand.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
