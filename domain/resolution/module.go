package resolution

import (
	"go.uber.org/fx"

	"github.com/linkage-labs/linkage/domain/entity"
	"github.com/linkage-labs/linkage/domain/relationship"
)

// Module provides the resolution engine.
var Module = fx.Module("resolution",
	fx.Provide(
		NewConfigStore,
		NewCandidateAggregator,
		NewAttributeMatcher,
		NewConfidenceScorer,
		NewMergeResolver,
		NewService,
		NewHandler,
		func(r *entity.Repository) EntityStore { return r },
		func(r *relationship.Repository) RelationshipStore { return r },
	),
	fx.Invoke(RegisterRoutes),
)
