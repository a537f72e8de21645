package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// StatsHandler serves operational statistics over the resolution store.
type StatsHandler struct {
	db bun.IDB
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(db bun.IDB) *StatsHandler {
	return &StatsHandler{db: db}
}

// EntityStats summarizes the entity store.
type EntityStats struct {
	Active     int64 `json:"active"`
	Archived   int64 `json:"archived"`
	Resolved   int64 `json:"resolved"`
	Unresolved int64 `json:"unresolved"`
	Embedded   int64 `json:"embedded"`
	Total      int64 `json:"total"`
	Last24h    int64 `json:"last_24_hours"`
}

// RelationshipStats summarizes the audit edge store.
type RelationshipStats struct {
	ConfirmedSameEntity int64 `json:"confirmed_same_entity"`
	NotSameEntity       int64 `json:"not_same_entity"`
	Superseded          int64 `json:"superseded"`
	Total               int64 `json:"total"`
}

// ResolutionStats is the combined statistics payload.
type ResolutionStats struct {
	Entities      EntityStats       `json:"entities"`
	Relationships RelationshipStats `json:"relationships"`
	Timestamp     string            `json:"timestamp"`
}

// Stats returns entity and relationship counts for dashboards.
func (h *StatsHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	entities, err := h.entityStats(ctx)
	if err != nil {
		return err
	}
	relationships, err := h.relationshipStats(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ResolutionStats{
		Entities:      *entities,
		Relationships: *relationships,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *StatsHandler) entityStats(ctx context.Context) (*EntityStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active') AS active,
			COUNT(*) FILTER (WHERE status = 'archived') AS archived,
			COUNT(*) FILTER (WHERE resolution->>'status' = 'resolved') AS resolved,
			COUNT(*) FILTER (WHERE resolution->>'status' IS DISTINCT FROM 'resolved') AS unresolved,
			COUNT(*) FILTER (WHERE name_embedding IS NOT NULL) AS embedded,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours') AS last_24_hours
		FROM er.entities`

	var stats struct {
		Active     int64 `bun:"active"`
		Archived   int64 `bun:"archived"`
		Resolved   int64 `bun:"resolved"`
		Unresolved int64 `bun:"unresolved"`
		Embedded   int64 `bun:"embedded"`
		Total      int64 `bun:"total"`
		Last24h    int64 `bun:"last_24_hours"`
	}
	if err := h.db.NewRaw(query).Scan(ctx, &stats); err != nil {
		return nil, err
	}

	return &EntityStats{
		Active:     stats.Active,
		Archived:   stats.Archived,
		Resolved:   stats.Resolved,
		Unresolved: stats.Unresolved,
		Embedded:   stats.Embedded,
		Total:      stats.Total,
		Last24h:    stats.Last24h,
	}, nil
}

func (h *StatsHandler) relationshipStats(ctx context.Context) (*RelationshipStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE type = 'CONFIRMED_SAME_ENTITY' AND status = 'active') AS confirmed_same_entity,
			COUNT(*) FILTER (WHERE type = 'NOT_SAME_ENTITY' AND status = 'active') AS not_same_entity,
			COUNT(*) FILTER (WHERE status = 'superseded') AS superseded,
			COUNT(*) AS total
		FROM er.relationships`

	var stats struct {
		ConfirmedSameEntity int64 `bun:"confirmed_same_entity"`
		NotSameEntity       int64 `bun:"not_same_entity"`
		Superseded          int64 `bun:"superseded"`
		Total               int64 `bun:"total"`
	}
	if err := h.db.NewRaw(query).Scan(ctx, &stats); err != nil {
		return nil, err
	}

	return &RelationshipStats{
		ConfirmedSameEntity: stats.ConfirmedSameEntity,
		NotSameEntity:       stats.NotSameEntity,
		Superseded:          stats.Superseded,
		Total:               stats.Total,
	}, nil
}
