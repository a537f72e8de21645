package search

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/linkage-labs/linkage/pkg/apperror"
	"github.com/linkage-labs/linkage/pkg/logger"
	"github.com/linkage-labs/linkage/pkg/mathutil"
)

// PostgresLexicalProvider performs full-text search over entity names and
// aliases using the generated fts tsvector column.
type PostgresLexicalProvider struct {
	db  bun.IDB
	log *slog.Logger
}

// NewPostgresLexicalProvider creates a new lexical provider.
func NewPostgresLexicalProvider(db bun.IDB, log *slog.Logger) *PostgresLexicalProvider {
	return &PostgresLexicalProvider{
		db:  db,
		log: log.With(logger.Scope("search.lexical")),
	}
}

// Search runs a websearch-style full-text query over active entities.
// Raw ts_rank scores are unbounded, so they are sigmoid-normalized into [0,1].
func (p *PostgresLexicalProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if query == "" {
		return nil, nil
	}
	limit = mathutil.ClampLimit(limit, 10, 50)

	sqlQuery := `
		SELECT e.entity_id,
			   ts_rank(e.fts, websearch_to_tsquery('simple', ?)) AS score
		FROM er.entities e
		WHERE e.fts @@ websearch_to_tsquery('simple', ?)
		  AND e.status = 'active'
		ORDER BY score DESC
		LIMIT ?
	`

	rows, err := p.db.QueryContext(ctx, sqlQuery, query, query, limit)
	if err != nil {
		p.log.Error("lexical search failed", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var raw []Hit
	var scores []float32
	for rows.Next() {
		var hit Hit
		var score float32
		if err := rows.Scan(&hit.EntityID, &score); err != nil {
			p.log.Error("lexical search row scan failed", logger.Error(err))
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		hit.Score = float64(score)
		raw = append(raw, hit)
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	// Z-score normalize then squash to keep provider scores comparable with
	// the semantic provider's cosine similarities.
	mean, std := mathutil.CalcMeanStd(scores)
	hits := make([]Hit, len(raw))
	for i, h := range raw {
		z := (float32(h.Score) - mean) / std
		hits[i] = Hit{EntityID: h.EntityID, Score: float64(mathutil.Sigmoid(z))}
	}

	return hits, nil
}
