package resolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkage-labs/linkage/domain/entity"
	"github.com/linkage-labs/linkage/domain/search"
)

func newTestService(t *testing.T, entities *fakeEntityStore, lex *stubLexical, sem *stubSemantic) (*Service, *fakeRelationshipStore) {
	t.Helper()
	if lex == nil {
		lex = &stubLexical{}
	}
	if sem == nil {
		sem = &stubSemantic{}
	}
	store := newTestConfigStore(t)
	rels := &fakeRelationshipStore{}
	log := discardLogger()

	return NewService(
		entities,
		newTestAggregator(lex, sem),
		NewAttributeMatcher(store),
		NewConfidenceScorer(store),
		NewMergeResolver(entities, rels, log),
		log,
	), rels
}

func TestResolveValidation(t *testing.T) {
	entities := newFakeEntityStore(t,
		&entity.Entity{EntityID: "a", Name: entity.Name{Full: "X Y"}},
		&entity.Entity{EntityID: "b", Name: entity.Name{Full: "X Y"}},
	)
	svc, _ := newTestService(t, entities, nil, nil)

	tests := []struct {
		name    string
		input   ResolutionDecisionInput
		wantErr string
	}{
		{
			name:    "unknown decision",
			input:   ResolutionDecisionInput{Decision: "maybe", SourceEntityID: "a", TargetEntityID: "b"},
			wantErr: "unknown decision",
		},
		{
			name:    "missing ids",
			input:   ResolutionDecisionInput{Decision: DecisionConfirmedMatch},
			wantErr: "required",
		},
		{
			name:    "self resolution",
			input:   ResolutionDecisionInput{Decision: DecisionConfirmedMatch, SourceEntityID: "a", TargetEntityID: "a"},
			wantErr: "itself",
		},
		{
			name: "override out of range",
			input: ResolutionDecisionInput{
				Decision: DecisionConfirmedMatch, SourceEntityID: "a", TargetEntityID: "b",
				ConfidenceOverride: floatPtr(1.5),
			},
			wantErr: "confidence_override",
		},
		{
			name:    "source missing",
			input:   ResolutionDecisionInput{Decision: DecisionConfirmedMatch, SourceEntityID: "ghost", TargetEntityID: "b"},
			wantErr: "not found",
		},
		{
			name:    "target missing",
			input:   ResolutionDecisionInput{Decision: DecisionConfirmedMatch, SourceEntityID: "a", TargetEntityID: "ghost"},
			wantErr: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Resolve(context.Background(), &tt.input)
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, StateRejectedInvalid, result.State)
			assert.Contains(t, result.Error, tt.wantErr)
		})
	}

	// Validation failures leave the store untouched.
	assert.False(t, entities.stored(t, "a").IsResolved())
	assert.False(t, entities.stored(t, "b").IsResolved())
}

func floatPtr(f float64) *float64 { return &f }

func TestResolveConfirmedMatchMerges(t *testing.T) {
	entities := newFakeEntityStore(t,
		&entity.Entity{
			EntityID: "src", Name: entity.Name{Full: "John Smith"},
			DateOfBirth: strPtr("1985-03-15"),
		},
		&entity.Entity{
			EntityID: "tgt", Name: entity.Name{Full: "John Smith"},
			DateOfBirth: strPtr("1985-03-15"),
		},
	)
	svc, rels := newTestService(t, entities, nil, nil)

	result, err := svc.Resolve(context.Background(), &ResolutionDecisionInput{
		Decision:       DecisionConfirmedMatch,
		SourceEntityID: "src", TargetEntityID: "tgt",
		ResolvedBy: "analyst-1",
	})
	require.NoError(t, err)

	require.True(t, result.Success)
	assert.Equal(t, StateMerged, result.State)
	require.NotNil(t, result.RelationshipID)
	require.NotNil(t, result.ConfidenceAnalysis)
	assert.InDelta(t, 0.94, result.ConfidenceAnalysis.ConfidenceScore, 0.001)

	src := entities.stored(t, "src")
	assert.True(t, src.IsResolved())
	assert.Equal(t, "tgt", src.Resolution.MasterEntityID)
	assert.InDelta(t, 0.94, src.Resolution.Confidence, 0.001)

	require.Len(t, rels.rels, 1)
	assert.InDelta(t, 0.94, rels.rels[0].Strength, 0.001)
}

func TestResolveConfirmedMatchWithOverride(t *testing.T) {
	entities := newFakeEntityStore(t,
		&entity.Entity{EntityID: "src", Name: entity.Name{Full: "Sam Miller"}},
		&entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "Samantha Miller"}},
	)
	svc, rels := newTestService(t, entities, nil, nil)

	result, err := svc.Resolve(context.Background(), &ResolutionDecisionInput{
		Decision:       DecisionConfirmedMatch,
		SourceEntityID: "src", TargetEntityID: "tgt",
		ConfidenceOverride: floatPtr(0.99),
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	// The override drives the persisted confidence, the computed analysis is
	// still reported.
	assert.InDelta(t, 0.99, entities.stored(t, "src").Resolution.Confidence, 0.001)
	assert.InDelta(t, 0.99, rels.rels[0].Strength, 0.001)
	assert.NotEqual(t, 0.99, result.ConfidenceAnalysis.ConfidenceScore)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "overridden")
}

func TestResolveNotAMatchDismissesWithoutWrites(t *testing.T) {
	entities := newFakeEntityStore(t,
		&entity.Entity{EntityID: "a", Name: entity.Name{Full: "John Smith"}},
		&entity.Entity{EntityID: "b", Name: entity.Name{Full: "John Smith"}},
	)
	svc, rels := newTestService(t, entities, nil, nil)

	result, err := svc.Resolve(context.Background(), &ResolutionDecisionInput{
		Decision:       DecisionNotAMatch,
		SourceEntityID: "a", TargetEntityID: "b",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, StateDismissed, result.State)
	assert.Nil(t, result.RelationshipID)
	require.NotNil(t, result.ConfidenceAnalysis)
	assert.Zero(t, result.ConfidenceAnalysis.ConfidenceScore)
	assert.Equal(t, LevelVeryLow, result.ConfidenceAnalysis.ConfidenceLevel)
	assert.Contains(t, result.ConfidenceAnalysis.Reasoning, "confidence forced to 0 by not_a_match decision")
	assert.Empty(t, rels.rels)
	assert.False(t, entities.stored(t, "a").IsResolved())
	assert.Equal(t, 1, entities.stored(t, "a").Version)
}

func TestResolveNeedsReviewDefers(t *testing.T) {
	entities := newFakeEntityStore(t,
		&entity.Entity{EntityID: "a", Name: entity.Name{Full: "Sam Miller"}, Identifiers: map[string]string{"ssn": "123"}},
		&entity.Entity{EntityID: "b", Name: entity.Name{Full: "Samantha Miller"}, Identifiers: map[string]string{"ssn": "123"}},
	)
	svc, rels := newTestService(t, entities, nil, nil)

	result, err := svc.Resolve(context.Background(), &ResolutionDecisionInput{
		Decision:       DecisionNeedsReview,
		SourceEntityID: "a", TargetEntityID: "b",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, StateReviewPending, result.State)
	require.NotNil(t, result.Review)
	assert.Equal(t, ActionManualReview, result.Review.Recommendation)
	assert.False(t, result.Review.CreatedAt.IsZero())
	assert.Empty(t, rels.rels)
	assert.False(t, entities.stored(t, "a").IsResolved())
}

func TestResolveAlreadyResolvedWarns(t *testing.T) {
	entities := newFakeEntityStore(t,
		&entity.Entity{
			EntityID: "src", Name: entity.Name{Full: "X Y"},
			Resolution: entity.Resolution{
				Status: entity.ResolutionResolved, MasterEntityID: "other-master",
			},
		},
		&entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "X Y"}},
	)
	svc, _ := newTestService(t, entities, nil, nil)

	result, err := svc.Resolve(context.Background(), &ResolutionDecisionInput{
		Decision:       DecisionConfirmedMatch,
		SourceEntityID: "src", TargetEntityID: "tgt",
	})
	require.NoError(t, err)

	require.True(t, result.Success)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "already resolved")
	assert.Equal(t, "tgt", entities.stored(t, "src").Resolution.MasterEntityID)
}

func TestResolveMergeFailureIsTerminal(t *testing.T) {
	entities := newFakeEntityStore(t,
		&entity.Entity{EntityID: "src", Name: entity.Name{Full: "X Y"}},
		&entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "X Y"}},
	)
	entities.conflictOn["tgt"] = true
	svc, _ := newTestService(t, entities, nil, nil)

	result, err := svc.Resolve(context.Background(), &ResolutionDecisionInput{
		Decision:       DecisionConfirmedMatch,
		SourceEntityID: "src", TargetEntityID: "tgt",
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, StateMergeFailed, result.State)
	assert.Contains(t, result.Error, stepApplyTarget)
}

func TestPotentialMatchesEnrichesCandidates(t *testing.T) {
	entities := newFakeEntityStore(t,
		&entity.Entity{EntityID: "subject", Name: entity.Name{Full: "John Smith"}, DateOfBirth: strPtr("1985-03-15")},
		&entity.Entity{EntityID: "dup", Name: entity.Name{Full: "John Smith"}, DateOfBirth: strPtr("1985-03-15")},
		&entity.Entity{EntityID: "weak", Name: entity.Name{Full: "Maria Garcia"}},
	)
	lex := &stubLexical{hits: []search.Hit{
		{EntityID: "subject", Score: 1.0},
		{EntityID: "dup", Score: 0.9},
		{EntityID: "weak", Score: 0.3},
	}}
	svc, _ := newTestService(t, entities, lex, nil)

	got, err := svc.PotentialMatches(context.Background(), "subject", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// The subject itself is excluded, the strong duplicate ranks first.
	assert.Equal(t, "dup", got[0].Candidate.EntityID)
	assert.Equal(t, ActionAutoConfirm, got[0].Confidence.RecommendedAction)
	assert.Equal(t, "weak", got[1].Candidate.EntityID)
	assert.NotEqual(t, ActionAutoConfirm, got[1].Confidence.RecommendedAction)
}

func TestPotentialMatchesSkipsArchivedCandidates(t *testing.T) {
	entities := newFakeEntityStore(t,
		&entity.Entity{EntityID: "subject", Name: entity.Name{Full: "John Smith"}},
		&entity.Entity{EntityID: "gone", Name: entity.Name{Full: "John Smith"}, Status: entity.StatusArchived},
	)
	lex := &stubLexical{hits: []search.Hit{{EntityID: "gone", Score: 0.9}}}
	svc, _ := newTestService(t, entities, lex, nil)

	got, err := svc.PotentialMatches(context.Background(), "subject", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPotentialMatchesUnknownSubject(t *testing.T) {
	svc, _ := newTestService(t, newFakeEntityStore(t), nil, nil)

	_, err := svc.PotentialMatches(context.Background(), "ghost", 10)
	require.Error(t, err)
}

func TestFindMatchesUsesSearchConfigDefaults(t *testing.T) {
	lex := &stubLexical{hits: []search.Hit{{EntityID: "e1", Score: 0.8}}}
	svc, _ := newTestService(t, newFakeEntityStore(t), lex, nil)

	got, err := svc.FindMatches(context.Background(), CandidateEntity{Name: "John Smith"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].EntityID)
}
