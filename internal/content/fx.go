package content

import (
	"github.com/megahub-io/megahub/internal/content/service"
	"go.uber.org/fx"
)

var Module = fx.Module("content.service",
	fx.Provide(service.New),
	fx.Invoke(RegisterDescriptors),
)
