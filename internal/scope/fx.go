package scope

import "go.uber.org/fx"

var Module = fx.Module("scope.scoper",
	fx.Provide(NewRegistry),
	fx.Provide(NewScoper),
)
