// Package search provides the lexical and semantic candidate search providers.
// Providers return ranked hits with provider-local scores; fusing them into one
// candidate list is the resolution engine's job.
package search

import (
	"context"
)

// Hit is a single provider result: an entity and its provider-local score.
// Scores are normalized to [0, 1] per provider.
type Hit struct {
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
}

// LexicalProvider searches entities by name text.
type LexicalProvider interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// SemanticProvider searches entities by vector similarity. SearchByText first
// obtains an embedding for the query, then delegates to SearchByVector.
type SemanticProvider interface {
	SearchByVector(ctx context.Context, vector []float32, limit int, threshold float64) ([]Hit, error)
	SearchByText(ctx context.Context, text string, limit int, threshold float64) ([]Hit, error)
}
