package relationship

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/linkage-labs/linkage/pkg/apperror"
	"github.com/linkage-labs/linkage/pkg/logger"
)

// Repository persists audit edges in er.relationships.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new relationship repository.
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("relationship.repo")),
	}
}

// Create inserts a new relationship and returns its id.
func (r *Repository) Create(ctx context.Context, rel *Relationship) (uuid.UUID, error) {
	if rel.Direction == "" {
		rel.Direction = DirectionDirected
	}
	if rel.Status == "" {
		rel.Status = StatusActive
	}

	_, err := r.db.NewInsert().
		Model(rel).
		Returning("*").
		Exec(ctx)
	if err != nil {
		r.log.Error("create relationship failed", logger.Error(err),
			slog.String("source", rel.SourceEntityID),
			slog.String("target", rel.TargetEntityID),
		)
		return uuid.Nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rel.ID, nil
}

// GetByID fetches a relationship by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Relationship, error) {
	rel := new(Relationship)
	err := r.db.NewSelect().
		Model(rel).
		Where("r.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("relationship", id.String())
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rel, nil
}

// FindByEntitiesAndType returns active relationships of the given type between
// two entities. Bidirectional edges match regardless of which side is source.
func (r *Repository) FindByEntitiesAndType(ctx context.Context, a, b, relType string) ([]*Relationship, error) {
	var rels []*Relationship
	err := r.db.NewSelect().
		Model(&rels).
		Where("r.type = ?", relType).
		Where("r.status = ?", StatusActive).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereGroup(" OR ", func(q *bun.SelectQuery) *bun.SelectQuery {
					return q.Where("r.source_entity_id = ?", a).Where("r.target_entity_id = ?", b)
				}).
				WhereGroup(" OR ", func(q *bun.SelectQuery) *bun.SelectQuery {
					return q.Where("r.source_entity_id = ?", b).Where("r.target_entity_id = ?", a).
						Where("r.direction = ?", DirectionBidirectional)
				})
		}).
		Scan(ctx)
	if err != nil {
		r.log.Error("find relationships failed", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rels, nil
}

// CountForEntity returns the number of active relationships touching an entity.
func (r *Repository) CountForEntity(ctx context.Context, entityID string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*Relationship)(nil)).
		Where("r.status = ?", StatusActive).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("r.source_entity_id = ?", entityID).
				WhereOr("r.target_entity_id = ?", entityID)
		}).
		Count(ctx)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return count, nil
}

// ListForEntity returns active relationships touching an entity, newest first.
func (r *Repository) ListForEntity(ctx context.Context, entityID string, limit int) ([]*Relationship, error) {
	var rels []*Relationship
	err := r.db.NewSelect().
		Model(&rels).
		Where("r.status = ?", StatusActive).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("r.source_entity_id = ?", entityID).
				WhereOr("r.target_entity_id = ?", entityID)
		}).
		Order("r.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rels, nil
}

// Supersede transitions a relationship to superseded status. Edges carry
// immutable history, so this is the only permitted mutation.
func (r *Repository) Supersede(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*Relationship)(nil)).
		Set("status = ?", StatusSuperseded).
		Where("r.id = ?", id).
		Where("r.status = ?", StatusActive).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	if rows == 0 {
		return apperror.NewNotFound("relationship", id.String())
	}
	return nil
}
