package search

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/linkage-labs/linkage/pkg/apperror"
	"github.com/linkage-labs/linkage/pkg/embeddings"
	"github.com/linkage-labs/linkage/pkg/logger"
	"github.com/linkage-labs/linkage/pkg/mathutil"
	"github.com/linkage-labs/linkage/pkg/pgutils"
)

// PgvectorSemanticProvider performs cosine-similarity search over entity name
// embeddings.
type PgvectorSemanticProvider struct {
	db         bun.IDB
	embeddings *embeddings.Service
	log        *slog.Logger
}

// NewPgvectorSemanticProvider creates a new semantic provider.
func NewPgvectorSemanticProvider(db bun.IDB, embeddingsSvc *embeddings.Service, log *slog.Logger) *PgvectorSemanticProvider {
	return &PgvectorSemanticProvider{
		db:         db,
		embeddings: embeddingsSvc,
		log:        log.With(logger.Scope("search.semantic")),
	}
}

// SearchByVector returns active entities whose name embedding is within the
// cosine-similarity threshold, best first.
func (p *PgvectorSemanticProvider) SearchByVector(ctx context.Context, vector []float32, limit int, threshold float64) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	limit = mathutil.ClampLimit(limit, 10, 50)
	vectorStr := pgutils.FormatVector(vector)

	// Cosine distance: lower is better, convert to similarity (1 - distance).
	sqlQuery := `
		SELECT e.entity_id,
			   (1 - (e.name_embedding <=> ?::vector)) AS score
		FROM er.entities e
		WHERE e.name_embedding IS NOT NULL
		  AND e.status = 'active'
		  AND (1 - (e.name_embedding <=> ?::vector)) >= ?
		ORDER BY e.name_embedding <=> ?::vector
		LIMIT ?
	`

	rows, err := p.db.QueryContext(ctx, sqlQuery, vectorStr, vectorStr, threshold, vectorStr, limit)
	if err != nil {
		p.log.Error("vector search failed", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		var score float32
		if err := rows.Scan(&hit.EntityID, &score); err != nil {
			p.log.Error("vector search row scan failed", logger.Error(err))
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		hit.Score = float64(score)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return hits, nil
}

// SearchByText embeds the query text and delegates to SearchByVector.
// With embeddings disabled it returns no hits rather than failing, so
// candidate search degrades to lexical-only.
func (p *PgvectorSemanticProvider) SearchByText(ctx context.Context, text string, limit int, threshold float64) ([]Hit, error) {
	if text == "" || !p.embeddings.IsEnabled() {
		return nil, nil
	}

	vector, err := p.embeddings.EmbedQuery(ctx, text)
	if err != nil {
		p.log.Warn("query embedding failed, skipping semantic search", logger.Error(err))
		return nil, nil
	}
	if len(vector) == 0 {
		return nil, nil
	}

	return p.SearchByVector(ctx, vector, limit, threshold)
}
