package entity

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/linkage-labs/linkage/pkg/apperror"
	"github.com/linkage-labs/linkage/pkg/logger"
	"github.com/linkage-labs/linkage/pkg/pgutils"
)

// Repository persists canonical entities in er.entities.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new entity repository.
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("entity.repo")),
	}
}

// GetByEntityID fetches an entity by its business key.
func (r *Repository) GetByEntityID(ctx context.Context, entityID string) (*Entity, error) {
	e := new(Entity)
	err := r.db.NewSelect().
		Model(e).
		Where("e.entity_id = ?", entityID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEntityNotFound.WithMessage("entity '" + entityID + "' not found")
		}
		r.log.Error("get entity failed", logger.Error(err), slog.String("entity_id", entityID))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return e, nil
}

// GetMany fetches entities by business key. Missing ids are silently omitted.
func (r *Repository) GetMany(ctx context.Context, entityIDs []string) ([]*Entity, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	var entities []*Entity
	err := r.db.NewSelect().
		Model(&entities).
		Where("e.entity_id IN (?)", bun.In(entityIDs)).
		Scan(ctx)
	if err != nil {
		r.log.Error("get entities failed", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return entities, nil
}

// Create inserts a new entity.
func (r *Repository) Create(ctx context.Context, e *Entity) (*Entity, error) {
	if e.Version == 0 {
		e.Version = 1
	}
	if e.Status == "" {
		e.Status = StatusActive
	}
	if e.Resolution.Status == "" {
		e.Resolution.Status = ResolutionUnresolved
	}

	_, err := r.db.NewInsert().
		Model(e).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return nil, apperror.ErrConflict.WithMessage("entity '" + e.EntityID + "' already exists")
		}
		r.log.Error("create entity failed", logger.Error(err), slog.String("entity_id", e.EntityID))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return e, nil
}

// Update writes the entity's mutable fields using optimistic versioning.
// e.Version must hold the version the caller read; the row is updated only if
// it still matches, and the stored version is incremented. Returns false when
// no row matched, i.e. a concurrent writer won.
func (r *Repository) Update(ctx context.Context, e *Entity) (bool, error) {
	res, err := r.db.NewUpdate().
		Model(e).
		Column("name", "identifiers", "contact", "date_of_birth",
			"risk_level", "risk_score", "resolution", "merge_history",
			"attributes", "status").
		Set("version = ?", e.Version+1).
		Set("updated_at = ?", time.Now().UTC()).
		Where("e.entity_id = ?", e.EntityID).
		Where("e.version = ?", e.Version).
		Exec(ctx)
	if err != nil {
		r.log.Error("update entity failed", logger.Error(err), slog.String("entity_id", e.EntityID))
		return false, apperror.ErrDatabase.WithInternal(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	if rows == 0 {
		return false, nil
	}

	e.Version++
	return true, nil
}

// Archive marks an entity archived, excluding it from matching. Returns false
// when the entity does not exist.
func (r *Repository) Archive(ctx context.Context, entityID string) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*Entity)(nil)).
		Set("status = ?", StatusArchived).
		Set("version = version + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("e.entity_id = ?", entityID).
		Where("e.status <> ?", StatusArchived).
		Exec(ctx)
	if err != nil {
		r.log.Error("archive entity failed", logger.Error(err), slog.String("entity_id", entityID))
		return false, apperror.ErrDatabase.WithInternal(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	return rows > 0, nil
}

// List returns active entities ordered by creation time.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Entity, error) {
	var entities []*Entity
	err := r.db.NewSelect().
		Model(&entities).
		Where("e.status = ?", StatusActive).
		Order("e.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		r.log.Error("list entities failed", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return entities, nil
}

// UpdateNameEmbedding stores the pgvector name embedding for an entity.
func (r *Repository) UpdateNameEmbedding(ctx context.Context, entityID string, vector []float32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE er.entities
		 SET name_embedding = ?::vector, embedding_updated_at = now()
		 WHERE entity_id = ?`,
		pgutils.FormatVector(vector), entityID)
	if err != nil {
		r.log.Error("update name embedding failed", logger.Error(err), slog.String("entity_id", entityID))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}
