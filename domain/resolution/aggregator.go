package resolution

import (
	"context"
	"log/slog"
	"sort"

	"github.com/linkage-labs/linkage/domain/search"
	"github.com/linkage-labs/linkage/internal/config"
	"github.com/linkage-labs/linkage/pkg/logger"
	"github.com/linkage-labs/linkage/pkg/mathutil"
)

// CandidateAggregator fans a query entity out to the lexical and semantic
// providers concurrently and fuses their hits into one deduplicated,
// deterministically ordered candidate list. A provider that fails or times out
// contributes nothing; it never fails the whole aggregation.
type CandidateAggregator struct {
	lexical  search.LexicalProvider
	semantic search.SemanticProvider
	cfg      config.SearchConfig
	log      *slog.Logger
}

// NewCandidateAggregator creates a new aggregator.
func NewCandidateAggregator(
	lexical search.LexicalProvider,
	semantic search.SemanticProvider,
	cfg *config.Config,
	log *slog.Logger,
) *CandidateAggregator {
	return &CandidateAggregator{
		lexical:  lexical,
		semantic: semantic,
		cfg:      cfg.Search,
		log:      log.With(logger.Scope("resolution.aggregator")),
	}
}

type providerResult struct {
	method string
	hits   []search.Hit
	err    error
}

// FindCandidates searches both providers for entities resembling the query
// and fuses the results: combined = lexicalWeight*lexical + semanticWeight*semantic.
// The query entity itself (by entity id) is excluded. Results are sorted by
// combined score descending, ties broken by entity id ascending, and truncated
// to limit.
func (a *CandidateAggregator) FindCandidates(ctx context.Context, query CandidateEntity, limit int) ([]*CandidateMatch, error) {
	limit = mathutil.ClampLimit(limit, a.cfg.DefaultLimit, a.cfg.MaxLimit)
	if query.Name == "" {
		return []*CandidateMatch{}, nil
	}

	// Over-fetch per provider so fusion has enough overlap to rank well.
	perProvider := limit * 2
	if perProvider > a.cfg.MaxLimit {
		perProvider = a.cfg.MaxLimit
	}

	results := make(chan providerResult, 2)

	go func() {
		pctx, cancel := context.WithTimeout(ctx, a.cfg.ProviderTimeout)
		defer cancel()
		hits, err := a.lexical.Search(pctx, query.Name, perProvider)
		results <- providerResult{method: MethodLexical, hits: hits, err: err}
	}()
	go func() {
		pctx, cancel := context.WithTimeout(ctx, a.cfg.ProviderTimeout)
		defer cancel()
		hits, err := a.semantic.SearchByText(pctx, query.Name, perProvider, a.cfg.SemanticThreshold)
		results <- providerResult{method: MethodSemantic, hits: hits, err: err}
	}()

	byID := map[string]*CandidateMatch{}
	for i := 0; i < 2; i++ {
		res := <-results
		if res.err != nil {
			a.log.Warn("candidate provider failed, continuing without it",
				slog.String("method", res.method), logger.Error(res.err))
			continue
		}
		for _, hit := range res.hits {
			if hit.EntityID == "" || hit.EntityID == query.EntityID {
				continue
			}
			c, ok := byID[hit.EntityID]
			if !ok {
				c = &CandidateMatch{EntityID: hit.EntityID}
				byID[hit.EntityID] = c
			}
			switch res.method {
			case MethodLexical:
				c.LexicalScore = hit.Score
			case MethodSemantic:
				c.SemanticScore = hit.Score
			}
			c.Methods = append(c.Methods, res.method)
		}
	}

	candidates := make([]*CandidateMatch, 0, len(byID))
	for _, c := range byID {
		sort.Strings(c.Methods)
		c.CombinedScore = mathutil.Round3(
			a.cfg.LexicalWeight*c.LexicalScore + a.cfg.SemanticWeight*c.SemanticScore,
		)
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CombinedScore != candidates[j].CombinedScore {
			return candidates[i].CombinedScore > candidates[j].CombinedScore
		}
		return candidates[i].EntityID < candidates[j].EntityID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
