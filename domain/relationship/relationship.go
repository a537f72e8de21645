// Package relationship provides the append-only audit edge store between
// entities. Relationships are never deleted, only status-transitioned.
package relationship

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Relationship types written by the resolution engine.
const (
	TypeConfirmedSameEntity = "CONFIRMED_SAME_ENTITY"
	TypeNotSameEntity       = "NOT_SAME_ENTITY"
)

// Directions.
const (
	DirectionDirected      = "directed"
	DirectionBidirectional = "bidirectional"
)

// Statuses.
const (
	StatusActive     = "active"
	StatusSuperseded = "superseded"
)

// Relationship is a persisted audit edge between two entities.
// A CONFIRMED_SAME_ENTITY edge implies the source entity is resolved with the
// target as its master.
type Relationship struct {
	bun.BaseModel `bun:"table:er.relationships,alias:r"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	SourceEntityID string    `bun:"source_entity_id,notnull" json:"source_entity_id"`
	TargetEntityID string    `bun:"target_entity_id,notnull" json:"target_entity_id"`

	Type      string  `bun:"type,notnull" json:"type"`
	Direction string  `bun:"direction,notnull,default:'directed'" json:"direction"`
	Strength  float64 `bun:"strength" json:"strength"`

	Evidence map[string]any `bun:"evidence,type:jsonb" json:"evidence,omitempty"`
	Verified bool           `bun:"verified,default:false" json:"verified"`

	CreatedBy string    `bun:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()" json:"created_at"`

	Status string `bun:"status,notnull,default:'active'" json:"status"`
}
