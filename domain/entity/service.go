package entity

import (
	"context"
	"log/slog"

	"github.com/linkage-labs/linkage/pkg/apperror"
	"github.com/linkage-labs/linkage/pkg/embeddings"
	"github.com/linkage-labs/linkage/pkg/logger"
)

// Service handles entity onboarding and lifecycle.
type Service struct {
	repo       *Repository
	embeddings *embeddings.Service
	log        *slog.Logger
}

// NewService creates a new entity service.
func NewService(repo *Repository, embeddingsSvc *embeddings.Service, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		embeddings: embeddingsSvc,
		log:        log.With(logger.Scope("entity.svc")),
	}
}

// Create onboards a new entity and indexes its name embedding when available.
func (s *Service) Create(ctx context.Context, req *CreateEntityRequest) (*Entity, error) {
	if req.EntityID == "" {
		return nil, apperror.NewBadRequest("entity_id is required")
	}
	if req.EntityType != TypePerson && req.EntityType != TypeOrganization {
		return nil, apperror.NewBadRequest("entity_type must be person or organization")
	}

	e := &Entity{
		EntityID:    req.EntityID,
		EntityType:  req.EntityType,
		Name:        req.Name,
		Identifiers: req.Identifiers,
		Contact:     req.Contact,
		DateOfBirth: req.DateOfBirth,
		RiskLevel:   req.RiskLevel,
		RiskScore:   req.RiskScore,
		Attributes:  req.Attributes,
		Status:      StatusActive,
		Resolution:  Resolution{Status: ResolutionUnresolved},
	}

	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}

	// Index the name embedding out of band; a failure leaves the entity
	// reachable through lexical search only.
	if name := created.FullName(); name != "" && s.embeddings.IsEnabled() {
		go func(entityID, name string) {
			bgCtx := context.Background()
			vec, err := s.embeddings.EmbedQuery(bgCtx, name)
			if err != nil || len(vec) == 0 {
				s.log.Warn("name embedding failed", logger.Error(err), slog.String("entity_id", entityID))
				return
			}
			if err := s.repo.UpdateNameEmbedding(bgCtx, entityID, vec); err != nil {
				s.log.Warn("name embedding store failed", logger.Error(err), slog.String("entity_id", entityID))
			}
		}(created.EntityID, name)
	}

	return created, nil
}

// Get fetches an entity by business key.
func (s *Service) Get(ctx context.Context, entityID string) (*Entity, error) {
	return s.repo.GetByEntityID(ctx, entityID)
}

// List returns active entities.
func (s *Service) List(ctx context.Context, limit, offset int) (*ListEntitiesResponse, error) {
	entities, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListEntitiesResponse{Data: entities, Total: len(entities)}, nil
}

// Archive excludes an entity from matching. Archived entities are never
// hard-deleted.
func (s *Service) Archive(ctx context.Context, entityID string) error {
	ok, err := s.repo.Archive(ctx, entityID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrEntityNotFound.WithMessage("entity '" + entityID + "' not found or already archived")
	}
	return nil
}
