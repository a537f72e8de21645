// Package entity provides the canonical entity store: persistence, versioned
// updates, and typed accessors used by the resolution comparators.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entity statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Entity types.
const (
	TypePerson       = "person"
	TypeOrganization = "organization"
)

// Resolution statuses.
const (
	ResolutionUnresolved = "unresolved"
	ResolutionResolved   = "resolved"
)

// Risk levels, ordered LOW < MEDIUM < HIGH < CRITICAL.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

var riskRank = map[string]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// HigherRisk returns the higher of two risk levels. Unknown levels rank lowest.
func HigherRisk(a, b string) string {
	if riskRank[strings.ToUpper(b)] > riskRank[strings.ToUpper(a)] {
		return strings.ToUpper(b)
	}
	if a == "" {
		return strings.ToUpper(b)
	}
	return strings.ToUpper(a)
}

// Name holds the structured name of a person or organization.
type Name struct {
	Full    string   `json:"full,omitempty"`
	First   string   `json:"first,omitempty"`
	Middle  string   `json:"middle,omitempty"`
	Last    string   `json:"last,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// Address holds a postal address.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Contact holds contact details.
type Contact struct {
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// Resolution holds the entity's resolution metadata.
type Resolution struct {
	Status         string    `json:"status"`
	MasterEntityID string    `json:"master_entity_id,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
	ResolvedBy     string    `json:"resolved_by,omitempty"`
	ResolvedAt     time.Time `json:"resolved_at,omitempty"`
	LinkedEntities []string  `json:"linked_entities,omitempty"`
}

// MergeRecord is one entry in an entity's merge history.
type MergeRecord struct {
	SourceEntityID string    `json:"source_entity_id"`
	MergedBy       string    `json:"merged_by,omitempty"`
	MergedAt       time.Time `json:"merged_at"`
	Confidence     float64   `json:"confidence"`
	Conflicts      []string  `json:"conflicts,omitempty"`
}

// Entity is a canonical record for a person or organization.
// EntityID is the immutable business key; Version is the optimistic counter
// bumped on every mutation.
type Entity struct {
	bun.BaseModel `bun:"table:er.entities,alias:e"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	EntityID   string    `bun:"entity_id,notnull,unique" json:"entity_id"`
	EntityType string    `bun:"entity_type,notnull" json:"entity_type"`

	Name        Name              `bun:"name,type:jsonb" json:"name"`
	Identifiers map[string]string `bun:"identifiers,type:jsonb" json:"identifiers,omitempty"`
	Contact     *Contact          `bun:"contact,type:jsonb" json:"contact,omitempty"`
	DateOfBirth *string           `bun:"date_of_birth" json:"date_of_birth,omitempty"`

	RiskLevel string  `bun:"risk_level" json:"risk_level,omitempty"`
	RiskScore float64 `bun:"risk_score" json:"risk_score,omitempty"`

	Resolution   Resolution    `bun:"resolution,type:jsonb" json:"resolution"`
	MergeHistory []MergeRecord `bun:"merge_history,type:jsonb" json:"merge_history,omitempty"`

	// Attributes carries forward-compatible unknown fields; comparators never
	// read it directly.
	Attributes map[string]any `bun:"attributes,type:jsonb" json:"attributes,omitempty"`

	Version int    `bun:"version,notnull,default:1" json:"version"`
	Status  string `bun:"status,notnull,default:'active'" json:"status"`

	CreatedAt time.Time `bun:"created_at,notnull,default:now()" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:now()" json:"updated_at"`

	// Name embedding for semantic candidate search, vector(768) via raw SQL.
	EmbeddingUpdatedAt *time.Time `bun:"embedding_updated_at" json:"-"`
}

// FullName returns the best available display name.
func (e *Entity) FullName() string {
	if e.Name.Full != "" {
		return e.Name.Full
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Name.First, e.Name.Middle, e.Name.Last} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Aliases returns the entity's known aliases.
func (e *Entity) Aliases() []string {
	return e.Name.Aliases
}

// Identifier returns the value of an identifier type, "" when absent.
func (e *Entity) Identifier(idType string) string {
	if e.Identifiers == nil {
		return ""
	}
	return e.Identifiers[idType]
}

// Email returns the contact email, "" when absent.
func (e *Entity) Email() string {
	if e.Contact == nil {
		return ""
	}
	return e.Contact.Email
}

// Phone returns the contact phone, "" when absent.
func (e *Entity) Phone() string {
	if e.Contact == nil {
		return ""
	}
	return e.Contact.Phone
}

// AddressLine returns a single-line rendering of the address, "" when absent.
func (e *Entity) AddressLine() string {
	if e.Contact == nil || e.Contact.Address == nil {
		return ""
	}
	a := e.Contact.Address
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Line1, a.City, a.State, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// LinkedEntities returns the entity ids previously merged into this entity.
func (e *Entity) LinkedEntities() []string {
	return e.Resolution.LinkedEntities
}

// IsArchived reports whether the entity is excluded from matching.
func (e *Entity) IsArchived() bool {
	return e.Status == StatusArchived
}

// IsResolved reports whether the entity has been merged into a master.
func (e *Entity) IsResolved() bool {
	return e.Resolution.Status == ResolutionResolved
}
