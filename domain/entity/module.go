package entity

import (
	"go.uber.org/fx"
)

// Module provides entity domain dependencies.
var Module = fx.Module("entity",
	fx.Provide(NewRepository),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
