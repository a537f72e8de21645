package search

import (
	"go.uber.org/fx"
)

// Module provides the search providers behind their interfaces.
var Module = fx.Module("search",
	fx.Provide(
		fx.Annotate(
			NewPostgresLexicalProvider,
			fx.As(new(LexicalProvider)),
		),
		fx.Annotate(
			NewPgvectorSemanticProvider,
			fx.As(new(SemanticProvider)),
		),
	),
)
