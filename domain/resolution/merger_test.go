package resolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkage-labs/linkage/domain/entity"
	"github.com/linkage-labs/linkage/domain/relationship"
)

func mergePair(t *testing.T, source, target *entity.Entity, mc MergeContext) (*MergeResult, *fakeEntityStore, *fakeRelationshipStore) {
	t.Helper()
	entities := newFakeEntityStore(t, source, target)
	rels := &fakeRelationshipStore{}
	m := NewMergeResolver(entities, rels, discardLogger())

	src, err := entities.GetByEntityID(context.Background(), source.EntityID)
	require.NoError(t, err)
	tgt, err := entities.GetByEntityID(context.Background(), target.EntityID)
	require.NoError(t, err)

	return m.Merge(context.Background(), src, tgt, mc), entities, rels
}

func TestMergeHappyPath(t *testing.T) {
	source := &entity.Entity{
		EntityID: "src", EntityType: entity.TypePerson,
		Name:        entity.Name{Full: "Jonathan Smith"},
		Identifiers: map[string]string{"ssn": "123", "passport": "P9"},
		Contact:     &entity.Contact{Email: "jon@x.com"},
		RiskLevel:   entity.RiskHigh, RiskScore: 0.8,
	}
	target := &entity.Entity{
		EntityID: "tgt", EntityType: entity.TypePerson,
		Name:        entity.Name{Full: "Jon Smith"},
		Identifiers: map[string]string{"ssn": "123"},
		Contact:     &entity.Contact{Phone: "555"},
		RiskLevel:   entity.RiskLow, RiskScore: 0.2,
	}

	result, entities, rels := mergePair(t, source, target, MergeContext{
		Confidence: 0.92, ResolvedBy: "analyst-1",
		MatchedAttributes: []string{CategoryName, CategoryIdentifiers},
	})

	require.True(t, result.Success)
	assert.Empty(t, result.FailedStep)
	assert.ElementsMatch(t, []string{"src", "tgt"}, result.UpdatedEntityIDs)
	require.NotNil(t, result.RelationshipID)

	tgt := entities.stored(t, "tgt")
	// Longer name wins, previous name survives as an alias.
	assert.Equal(t, "Jonathan Smith", tgt.FullName())
	// Gap-filling: email from source, phone kept.
	assert.Equal(t, "jon@x.com", tgt.Email())
	assert.Equal(t, "555", tgt.Phone())
	// Identifier union.
	assert.Equal(t, "P9", tgt.Identifier("passport"))
	// Risk escalation.
	assert.Equal(t, entity.RiskHigh, tgt.RiskLevel)
	assert.InDelta(t, 0.8, tgt.RiskScore, 0.001)
	// Source folded into the target's linked set and merge history.
	assert.Contains(t, tgt.LinkedEntities(), "src")
	require.Len(t, tgt.MergeHistory, 1)
	assert.Equal(t, "src", tgt.MergeHistory[0].SourceEntityID)
	assert.InDelta(t, 0.92, tgt.MergeHistory[0].Confidence, 0.001)

	src := entities.stored(t, "src")
	assert.True(t, src.IsResolved())
	assert.Equal(t, "tgt", src.Resolution.MasterEntityID)
	assert.Equal(t, "analyst-1", src.Resolution.ResolvedBy)
	assert.True(t, src.IsArchived())

	require.Len(t, rels.rels, 1)
	rel := rels.rels[0]
	assert.Equal(t, relationship.TypeConfirmedSameEntity, rel.Type)
	assert.Equal(t, relationship.DirectionBidirectional, rel.Direction)
	assert.InDelta(t, 0.92, rel.Strength, 0.001)
	assert.True(t, rel.Verified)
}

func TestMergeNameTieKeepsTarget(t *testing.T) {
	source := &entity.Entity{EntityID: "src", Name: entity.Name{Full: "Ann Lee"}}
	target := &entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "Ana Lee"}}

	result, entities, _ := mergePair(t, source, target, MergeContext{Confidence: 0.9})
	require.True(t, result.Success)

	tgt := entities.stored(t, "tgt")
	assert.Equal(t, "Ana Lee", tgt.FullName())
	assert.Contains(t, tgt.Name.Aliases, "Ann Lee")
}

func TestMergeIdentifierCollisionKeepsBothValues(t *testing.T) {
	source := &entity.Entity{
		EntityID: "src", Name: entity.Name{Full: "X Y"},
		Identifiers: map[string]string{"passport": "SRC-1"},
	}
	target := &entity.Entity{
		EntityID: "tgt", Name: entity.Name{Full: "X Y"},
		Identifiers: map[string]string{"passport": "TGT-1"},
	}

	result, entities, _ := mergePair(t, source, target, MergeContext{Confidence: 0.9})
	require.True(t, result.Success)

	tgt := entities.stored(t, "tgt")
	assert.Equal(t, "TGT-1", tgt.Identifier("passport"))
	assert.Equal(t, "SRC-1", tgt.Identifier("passport_alt"))

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "identifiers.passport", result.Conflicts[0].Field)
}

func TestMergeDOBConflictKeepsTarget(t *testing.T) {
	source := &entity.Entity{EntityID: "src", Name: entity.Name{Full: "X Y"}, DateOfBirth: strPtr("1985-03-15")}
	target := &entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "X Y"}, DateOfBirth: strPtr("1986-01-01")}

	result, entities, _ := mergePair(t, source, target, MergeContext{Confidence: 0.9})
	require.True(t, result.Success)

	tgt := entities.stored(t, "tgt")
	require.NotNil(t, tgt.DateOfBirth)
	assert.Equal(t, "1986-01-01", *tgt.DateOfBirth)

	var fields []string
	for _, c := range result.Conflicts {
		fields = append(fields, c.Field)
	}
	assert.Contains(t, fields, "date_of_birth")
}

func TestMergeTransfersLinkedEntities(t *testing.T) {
	linked := &entity.Entity{
		EntityID: "old-dup", Name: entity.Name{Full: "X Y"},
		Resolution: entity.Resolution{
			Status: entity.ResolutionResolved, MasterEntityID: "src",
		},
		Status: entity.StatusArchived,
	}
	source := &entity.Entity{
		EntityID: "src", Name: entity.Name{Full: "X Y"},
		Resolution: entity.Resolution{LinkedEntities: []string{"old-dup"}},
	}
	target := &entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "X Y"}}

	entities := newFakeEntityStore(t, linked, source, target)
	rels := &fakeRelationshipStore{}
	m := NewMergeResolver(entities, rels, discardLogger())

	src, _ := entities.GetByEntityID(context.Background(), "src")
	tgt, _ := entities.GetByEntityID(context.Background(), "tgt")
	result := m.Merge(context.Background(), src, tgt, MergeContext{Confidence: 0.95})
	require.True(t, result.Success)

	// Target adopts both the source and everything the source had absorbed.
	stored := entities.stored(t, "tgt")
	assert.ElementsMatch(t, []string{"src", "old-dup"}, stored.LinkedEntities())

	// The previously absorbed entity now points at the new master.
	assert.Equal(t, "tgt", entities.stored(t, "old-dup").Resolution.MasterEntityID)
	assert.Contains(t, result.UpdatedEntityIDs, "old-dup")
}

func TestMergeLinkedTransferIdempotent(t *testing.T) {
	source := &entity.Entity{
		EntityID: "src", Name: entity.Name{Full: "X Y"},
		Resolution: entity.Resolution{LinkedEntities: []string{"dup-1"}},
	}
	target := &entity.Entity{
		EntityID: "tgt", Name: entity.Name{Full: "X Y"},
		Resolution: entity.Resolution{LinkedEntities: []string{"dup-1", "src"}},
	}
	dup := &entity.Entity{
		EntityID: "dup-1", Name: entity.Name{Full: "X Y"},
		Resolution: entity.Resolution{Status: entity.ResolutionResolved, MasterEntityID: "tgt"},
	}

	entities := newFakeEntityStore(t, source, target, dup)
	rels := &fakeRelationshipStore{}
	m := NewMergeResolver(entities, rels, discardLogger())

	src, _ := entities.GetByEntityID(context.Background(), "src")
	tgt, _ := entities.GetByEntityID(context.Background(), "tgt")
	result := m.Merge(context.Background(), src, tgt, MergeContext{Confidence: 0.95})
	require.True(t, result.Success)

	// Re-merging produces the same linked set, no duplicates.
	stored := entities.stored(t, "tgt")
	assert.ElementsMatch(t, []string{"src", "dup-1"}, stored.LinkedEntities())
	// Already re-pointed entity untouched.
	assert.NotContains(t, result.UpdatedEntityIDs, "dup-1")
}

func TestMergeReusesExistingAuditEdge(t *testing.T) {
	source := &entity.Entity{EntityID: "src", Name: entity.Name{Full: "X Y"}}
	target := &entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "X Y"}}

	entities := newFakeEntityStore(t, source, target)
	rels := &fakeRelationshipStore{}
	existingID, err := rels.Create(context.Background(), &relationship.Relationship{
		SourceEntityID: "src", TargetEntityID: "tgt",
		Type: relationship.TypeConfirmedSameEntity, Direction: relationship.DirectionBidirectional,
	})
	require.NoError(t, err)

	m := NewMergeResolver(entities, rels, discardLogger())
	src, _ := entities.GetByEntityID(context.Background(), "src")
	tgt, _ := entities.GetByEntityID(context.Background(), "tgt")
	result := m.Merge(context.Background(), src, tgt, MergeContext{Confidence: 0.9})

	require.True(t, result.Success)
	require.NotNil(t, result.RelationshipID)
	assert.Equal(t, existingID, *result.RelationshipID)
	assert.Len(t, rels.rels, 1)
}

func TestMergeConcurrentTargetWriteFails(t *testing.T) {
	source := &entity.Entity{EntityID: "src", Name: entity.Name{Full: "X Y"}}
	target := &entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "X Y"}}

	entities := newFakeEntityStore(t, source, target)
	entities.conflictOn["tgt"] = true
	m := NewMergeResolver(entities, &fakeRelationshipStore{}, discardLogger())

	src, _ := entities.GetByEntityID(context.Background(), "src")
	tgt, _ := entities.GetByEntityID(context.Background(), "tgt")
	result := m.Merge(context.Background(), src, tgt, MergeContext{Confidence: 0.9})

	assert.False(t, result.Success)
	assert.Equal(t, stepApplyTarget, result.FailedStep)
	assert.Contains(t, result.Error, "concurrently")
	// Nothing was written.
	assert.Empty(t, result.UpdatedEntityIDs)
	assert.False(t, entities.stored(t, "src").IsResolved())
}

func TestMergeConcurrentSourceWriteReportsStep(t *testing.T) {
	source := &entity.Entity{EntityID: "src", Name: entity.Name{Full: "X Y"}}
	target := &entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "X Y"}}

	entities := newFakeEntityStore(t, source, target)
	entities.conflictOn["src"] = true
	m := NewMergeResolver(entities, &fakeRelationshipStore{}, discardLogger())

	src, _ := entities.GetByEntityID(context.Background(), "src")
	tgt, _ := entities.GetByEntityID(context.Background(), "tgt")
	result := m.Merge(context.Background(), src, tgt, MergeContext{Confidence: 0.9})

	assert.False(t, result.Success)
	assert.Equal(t, stepUpdateSource, result.FailedStep)
	// The target write already landed; the result says so.
	assert.Equal(t, []string{"tgt"}, result.UpdatedEntityIDs)
}

func TestMergeStatusActiveWins(t *testing.T) {
	source := &entity.Entity{EntityID: "src", Name: entity.Name{Full: "X Y"}, Status: entity.StatusActive}
	target := &entity.Entity{EntityID: "tgt", Name: entity.Name{Full: "X Y"}, Status: entity.StatusArchived}

	result, entities, _ := mergePair(t, source, target, MergeContext{Confidence: 0.9})
	require.True(t, result.Success)
	assert.Equal(t, entity.StatusActive, entities.stored(t, "tgt").Status)
}
