package alert

import (
	"github.com/megahub-io/megahub/internal/alert/repository"
	"github.com/megahub-io/megahub/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
