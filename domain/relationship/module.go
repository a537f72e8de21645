package relationship

import (
	"go.uber.org/fx"
)

// Module provides relationship domain dependencies.
var Module = fx.Module("relationship",
	fx.Provide(NewRepository),
)
