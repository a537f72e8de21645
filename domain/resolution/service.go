package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/linkage-labs/linkage/domain/entity"
	"github.com/linkage-labs/linkage/pkg/logger"
	"github.com/linkage-labs/linkage/pkg/tracing"
)

// Service orchestrates the resolution pipeline: candidate search, attribute
// analysis, confidence scoring, and decision dispatch.
type Service struct {
	entities   EntityStore
	aggregator *CandidateAggregator
	matcher    *AttributeMatcher
	scorer     *ConfidenceScorer
	merger     *MergeResolver
	log        *slog.Logger
}

// NewService creates the resolution service.
func NewService(
	entities EntityStore,
	aggregator *CandidateAggregator,
	matcher *AttributeMatcher,
	scorer *ConfidenceScorer,
	merger *MergeResolver,
	log *slog.Logger,
) *Service {
	return &Service{
		entities:   entities,
		aggregator: aggregator,
		matcher:    matcher,
		scorer:     scorer,
		merger:     merger,
		log:        log.With(logger.Scope("resolution.service")),
	}
}

// FindMatches returns fused candidates for a query entity that need not exist
// in the store yet.
func (s *Service) FindMatches(ctx context.Context, query CandidateEntity, limit int) ([]*CandidateMatch, error) {
	return s.aggregator.FindCandidates(ctx, query, limit)
}

// Analyze runs the attribute matcher and confidence scorer over a stored pair.
func (s *Service) Analyze(ctx context.Context, sourceID, targetID string) (*MatchAnalysis, *ConfidenceResult, error) {
	source, err := s.entities.GetByEntityID(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.entities.GetByEntityID(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	analysis := s.matcher.Analyze(source, target)
	return analysis, s.scorer.Score(analysis), nil
}

// PotentialMatches searches candidates for a stored entity and enriches each
// with a full attribute analysis and confidence score, best first.
func (s *Service) PotentialMatches(ctx context.Context, entityID string, limit int) ([]*PotentialMatch, error) {
	ctx, span := tracing.Start(ctx, "resolution.potential_matches",
		attribute.String("linkage.entity_id", entityID),
	)
	defer span.End()

	subject, err := s.entities.GetByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	query := CandidateEntity{
		EntityID:    subject.EntityID,
		EntityType:  subject.EntityType,
		Name:        subject.FullName(),
		Identifiers: subject.Identifiers,
	}
	candidates, err := s.aggregator.FindCandidates(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []*PotentialMatch{}, nil
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.EntityID)
	}
	others, err := s.entities.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.Entity, len(others))
	for _, e := range others {
		byID[e.EntityID] = e
	}

	matches := make([]*PotentialMatch, 0, len(candidates))
	for _, c := range candidates {
		other, ok := byID[c.EntityID]
		if !ok || other.IsArchived() {
			continue
		}
		analysis := s.matcher.Analyze(subject, other)
		matches = append(matches, &PotentialMatch{
			Candidate:  c,
			Analysis:   analysis,
			Confidence: s.scorer.Score(analysis),
		})
	}

	// Candidate order reflects raw search scores; re-rank on the full
	// confidence analysis.
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Confidence.ConfidenceScore != b.Confidence.ConfidenceScore {
			return a.Confidence.ConfidenceScore > b.Confidence.ConfidenceScore
		}
		return a.Candidate.EntityID < b.Candidate.EntityID
	})
	return matches, nil
}

// Resolve validates and executes a resolution decision. Validation failures
// produce a REJECTED_INVALID result with no side effects; storage errors
// surface as returned errors.
func (s *Service) Resolve(ctx context.Context, input *ResolutionDecisionInput) (*ResolutionResult, error) {
	ctx, span := tracing.Start(ctx, "resolution.resolve",
		attribute.String("linkage.decision", input.Decision),
		attribute.String("linkage.source_entity_id", input.SourceEntityID),
		attribute.String("linkage.target_entity_id", input.TargetEntityID),
	)
	defer span.End()

	result := &ResolutionResult{Decision: input.Decision}

	if reason := s.validateInput(input); reason != "" {
		result.State = StateRejectedInvalid
		result.Error = reason
		return result, nil
	}

	source, err := s.entities.GetByEntityID(ctx, input.SourceEntityID)
	if err != nil {
		result.State = StateRejectedInvalid
		result.Error = fmt.Sprintf("source entity %q not found", input.SourceEntityID)
		return result, nil
	}
	target, err := s.entities.GetByEntityID(ctx, input.TargetEntityID)
	if err != nil {
		result.State = StateRejectedInvalid
		result.Error = fmt.Sprintf("target entity %q not found", input.TargetEntityID)
		return result, nil
	}

	if source.IsResolved() && source.Resolution.MasterEntityID != target.EntityID {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"source is already resolved into %q; proceeding re-points it",
			source.Resolution.MasterEntityID))
	}

	analysis := s.matcher.Analyze(source, target)
	confidence := s.scorer.Score(analysis)
	result.ConfidenceAnalysis = confidence

	switch input.Decision {
	case DecisionConfirmedMatch:
		s.resolveConfirmed(ctx, input, source, target, analysis, confidence, result)
	case DecisionNotAMatch:
		// The pair is ruled out regardless of how similar it looked; the
		// computed reasoning stays on record, the score does not.
		dismissed := *confidence
		dismissed.ConfidenceScore = 0
		dismissed.ConfidenceLevel = LevelVeryLow
		dismissed.Reasoning = append(append([]string{}, confidence.Reasoning...),
			"confidence forced to 0 by not_a_match decision")
		result.ConfidenceAnalysis = &dismissed
		result.State = StateDismissed
		result.Success = true
		s.log.Info("pair dismissed as not the same entity",
			slog.String("source", source.EntityID),
			slog.String("target", target.EntityID),
		)
	case DecisionNeedsReview:
		result.State = StateReviewPending
		result.Success = true
		result.Review = &ReviewPayload{
			ConfidenceAnalysis: confidence,
			Recommendation:     confidence.RecommendedAction,
			CreatedAt:          time.Now().UTC(),
		}
	}
	return result, nil
}

func (s *Service) resolveConfirmed(
	ctx context.Context,
	input *ResolutionDecisionInput,
	source, target *entity.Entity,
	analysis *MatchAnalysis,
	confidence *ConfidenceResult,
	result *ResolutionResult,
) {
	effective := confidence.ConfidenceScore
	if input.ConfidenceOverride != nil {
		effective = *input.ConfidenceOverride
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"confidence overridden to %.3f (computed %.3f)", effective, confidence.ConfidenceScore))
	}

	matched := input.MatchedAttributes
	if len(matched) == 0 {
		matched = analysis.MatchedAttributes
	}

	merge := s.merger.Merge(ctx, source, target, MergeContext{
		Confidence:        effective,
		ResolvedBy:        input.ResolvedBy,
		MatchedAttributes: matched,
		Notes:             input.Notes,
	})
	result.Conflicts = merge.Conflicts
	result.UpdatedEntityIDs = merge.UpdatedEntityIDs

	if !merge.Success {
		result.State = StateMergeFailed
		result.Error = fmt.Sprintf("merge failed at %s: %s", merge.FailedStep, merge.Error)
		return
	}
	result.State = StateMerged
	result.Success = true
	result.RelationshipID = merge.RelationshipID
}

// validateInput checks structural validity. Returns "" when valid.
func (s *Service) validateInput(input *ResolutionDecisionInput) string {
	switch input.Decision {
	case DecisionConfirmedMatch, DecisionNotAMatch, DecisionNeedsReview:
	default:
		return fmt.Sprintf("unknown decision %q", input.Decision)
	}
	if input.SourceEntityID == "" || input.TargetEntityID == "" {
		return "source_entity_id and target_entity_id are required"
	}
	if input.SourceEntityID == input.TargetEntityID {
		return "an entity cannot be resolved against itself"
	}
	if input.ConfidenceOverride != nil && (*input.ConfidenceOverride < 0 || *input.ConfidenceOverride > 1) {
		return "confidence_override must lie in [0, 1]"
	}
	return ""
}
