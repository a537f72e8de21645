package entity

// CreateEntityRequest is the request body for entity onboarding.
type CreateEntityRequest struct {
	EntityID    string            `json:"entity_id" validate:"required"`
	EntityType  string            `json:"entity_type" validate:"required"`
	Name        Name              `json:"name"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
	Contact     *Contact          `json:"contact,omitempty"`
	DateOfBirth *string           `json:"date_of_birth,omitempty"`
	RiskLevel   string            `json:"risk_level,omitempty"`
	RiskScore   float64           `json:"risk_score,omitempty"`
	Attributes  map[string]any    `json:"attributes,omitempty"`
}

// ListEntitiesResponse is the response for entity listing.
type ListEntitiesResponse struct {
	Data  []*Entity `json:"data"`
	Total int       `json:"total"`
}
