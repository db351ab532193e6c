package company

import (
	"github.com/megahub-io/megahub/internal/company/repository"
	"github.com/megahub-io/megahub/internal/company/service"
	"go.uber.org/fx"
)

var Module = fx.Module("company.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
