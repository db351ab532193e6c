package identity

import (
	"github.com/megahub-io/megahub/internal/identity/repository"
	"github.com/megahub-io/megahub/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
