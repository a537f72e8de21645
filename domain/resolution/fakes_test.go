package resolution

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/linkage-labs/linkage/domain/entity"
	"github.com/linkage-labs/linkage/domain/relationship"
	"github.com/linkage-labs/linkage/pkg/apperror"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEntityStore is an in-memory EntityStore with the same optimistic
// versioning semantics as the real repository.
type fakeEntityStore struct {
	mu       sync.Mutex
	entities map[string]*entity.Entity

	// conflictOn simulates a concurrent writer: Update on these ids reports
	// zero rows matched.
	conflictOn map[string]bool
	updateErr  error
}

func newFakeEntityStore(t *testing.T, seed ...*entity.Entity) *fakeEntityStore {
	t.Helper()
	s := &fakeEntityStore{
		entities:   map[string]*entity.Entity{},
		conflictOn: map[string]bool{},
	}
	for _, e := range seed {
		if e.Version == 0 {
			e.Version = 1
		}
		if e.Status == "" {
			e.Status = entity.StatusActive
		}
		if e.Resolution.Status == "" {
			e.Resolution.Status = entity.ResolutionUnresolved
		}
		s.entities[e.EntityID] = cloneEntity(t, e)
	}
	return s
}

func cloneEntity(t *testing.T, e *entity.Entity) *entity.Entity {
	t.Helper()
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	out := new(entity.Entity)
	require.NoError(t, json.Unmarshal(raw, out))
	return out
}

func (s *fakeEntityStore) GetByEntityID(_ context.Context, entityID string) (*entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[entityID]
	if !ok {
		return nil, apperror.ErrEntityNotFound
	}
	raw, _ := json.Marshal(e)
	out := new(entity.Entity)
	_ = json.Unmarshal(raw, out)
	return out, nil
}

func (s *fakeEntityStore) GetMany(_ context.Context, entityIDs []string) ([]*entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Entity
	for _, id := range entityIDs {
		if e, ok := s.entities[id]; ok {
			raw, _ := json.Marshal(e)
			c := new(entity.Entity)
			_ = json.Unmarshal(raw, c)
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeEntityStore) Update(_ context.Context, e *entity.Entity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return false, s.updateErr
	}
	if s.conflictOn[e.EntityID] {
		return false, nil
	}
	stored, ok := s.entities[e.EntityID]
	if !ok || stored.Version != e.Version {
		return false, nil
	}
	raw, _ := json.Marshal(e)
	next := new(entity.Entity)
	_ = json.Unmarshal(raw, next)
	next.Version = e.Version + 1
	s.entities[e.EntityID] = next
	e.Version++
	return true, nil
}

func (s *fakeEntityStore) stored(t *testing.T, entityID string) *entity.Entity {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[entityID]
	require.True(t, ok, "entity %q not in store", entityID)
	return cloneEntity(t, e)
}

// fakeRelationshipStore is an in-memory RelationshipStore.
type fakeRelationshipStore struct {
	mu        sync.Mutex
	rels      []*relationship.Relationship
	createErr error
}

func (s *fakeRelationshipStore) Create(_ context.Context, rel *relationship.Relationship) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return uuid.Nil, s.createErr
	}
	rel.ID = uuid.New()
	if rel.Status == "" {
		rel.Status = relationship.StatusActive
	}
	s.rels = append(s.rels, rel)
	return rel.ID, nil
}

func (s *fakeRelationshipStore) FindByEntitiesAndType(_ context.Context, a, b, relType string) ([]*relationship.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*relationship.Relationship
	for _, r := range s.rels {
		if r.Type != relType || r.Status != relationship.StatusActive {
			continue
		}
		direct := r.SourceEntityID == a && r.TargetEntityID == b
		reverse := r.SourceEntityID == b && r.TargetEntityID == a && r.Direction == relationship.DirectionBidirectional
		if direct || reverse {
			out = append(out, r)
		}
	}
	return out, nil
}
