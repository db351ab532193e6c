package slots

import (
	"github.com/megahub-io/megahub/internal/slots/repository"
	"github.com/megahub-io/megahub/internal/slots/service"
	"go.uber.org/fx"
)

var Module = fx.Module("slots.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
