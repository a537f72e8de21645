// Package resolution implements the entity resolution engine: candidate
// aggregation, attribute matching, confidence scoring, merge resolution, and
// the resolution decision state machine.
package resolution

import (
	"time"

	"github.com/google/uuid"
)

// Attribute categories compared by the matcher.
const (
	CategoryName        = "name"
	CategoryIdentifiers = "identifiers"
	CategoryContact     = "contact"
	CategoryDOB         = "date_of_birth"
)

// Match classifications.
const (
	ClassMatched = "matched"
	ClassPartial = "partial"
	ClassNoMatch = "no_match"
)

// Caller decisions.
const (
	DecisionConfirmedMatch = "confirmed_match"
	DecisionNotAMatch      = "not_a_match"
	DecisionNeedsReview    = "needs_review"
)

// Resolution states. Only terminal states appear in results.
const (
	StateRejectedInvalid = "REJECTED_INVALID"
	StateMerged          = "MERGED"
	StateMergeFailed     = "MERGE_FAILED"
	StateDismissed       = "DISMISSED"
	StateReviewPending   = "REVIEW_PENDING"
)

// Confidence levels.
const (
	LevelVeryLow  = "VERY_LOW"
	LevelLow      = "LOW"
	LevelMedium   = "MEDIUM"
	LevelHigh     = "HIGH"
	LevelCritical = "CRITICAL"
)

// Recommended actions.
const (
	ActionAutoConfirm  = "AUTO_CONFIRM"
	ActionManualReview = "MANUAL_REVIEW"
	ActionLikelyReject = "LIKELY_REJECT"
	ActionReject       = "REJECT"
)

// Search methods contributing to a candidate.
const (
	MethodLexical  = "lexical"
	MethodSemantic = "semantic"
)

// CandidateMatch is an ephemeral fused search result. Never persisted.
type CandidateMatch struct {
	EntityID      string   `json:"entity_id"`
	LexicalScore  float64  `json:"lexical_score"`
	SemanticScore float64  `json:"semantic_score"`
	CombinedScore float64  `json:"combined_score"`
	Methods       []string `json:"methods"`
}

// AttributeMatch is one category's comparison outcome.
type AttributeMatch struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Class    string  `json:"class"`
	Reason   string  `json:"reason,omitempty"`
}

// MatchAnalysis is the attribute-level similarity breakdown for a pair of
// entities. Ephemeral, but may be embedded as relationship evidence.
type MatchAnalysis struct {
	MatchedAttributes []string           `json:"matched_attributes"`
	PartialMatches    []string           `json:"partial_matches"`
	NoMatches         []string           `json:"no_matches"`
	SimilarityScores  map[string]float64 `json:"similarity_scores"`
	Details           []AttributeMatch   `json:"details"`
	OverallMatchScore float64            `json:"overall_match_score"`
}

// ConfidenceBreakdown exposes the scoring intermediates for audit.
type ConfidenceBreakdown struct {
	WeightedBase    float64 `json:"weighted_base"`
	QualityAdjusted float64 `json:"quality_adjusted"`
	Consistency     float64 `json:"consistency"`
	Completeness    float64 `json:"completeness"`
	Statistical     float64 `json:"statistical"`
}

// ThresholdAnalysis records which decision threshold the score met.
type ThresholdAnalysis struct {
	AutoConfirm  float64 `json:"auto_confirm"`
	ManualReview float64 `json:"manual_review"`
	LikelyReject float64 `json:"likely_reject"`
	MetThreshold string  `json:"met_threshold"`
}

// ConfidenceResult is the calibrated scoring outcome for a candidate pair.
type ConfidenceResult struct {
	ConfidenceScore   float64             `json:"confidence_score"`
	ConfidenceLevel   string              `json:"confidence_level"`
	RecommendedAction string              `json:"recommended_action"`
	Breakdown         ConfidenceBreakdown `json:"breakdown"`
	ThresholdAnalysis ThresholdAnalysis   `json:"threshold_analysis"`
	Reasoning         []string            `json:"reasoning"`
	NextSteps         string              `json:"next_steps"`
}

// ResolutionDecisionInput is the caller's decision about a candidate pair.
type ResolutionDecisionInput struct {
	Decision           string   `json:"decision"`
	SourceEntityID     string   `json:"source_entity_id"`
	TargetEntityID     string   `json:"target_entity_id"`
	MatchedAttributes  []string `json:"matched_attributes,omitempty"`
	ConfidenceOverride *float64 `json:"confidence_override,omitempty"`
	ResolvedBy         string   `json:"resolved_by,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

// ReviewPayload packages the analysis for a deferred human decision.
type ReviewPayload struct {
	ConfidenceAnalysis *ConfidenceResult `json:"confidence_analysis"`
	Recommendation     string            `json:"recommendation"`
	CreatedAt          time.Time         `json:"created_at"`
}

// ResolutionResult is the terminal outcome of a resolution decision.
type ResolutionResult struct {
	Success            bool              `json:"success"`
	Decision           string            `json:"decision"`
	State              string            `json:"state"`
	RelationshipID     *uuid.UUID        `json:"relationship_id,omitempty"`
	UpdatedEntityIDs   []string          `json:"updated_entity_ids,omitempty"`
	ConfidenceAnalysis *ConfidenceResult `json:"confidence_analysis,omitempty"`
	Review             *ReviewPayload    `json:"review,omitempty"`
	Conflicts          []FieldConflict   `json:"conflicts,omitempty"`
	Warnings           []string          `json:"warnings,omitempty"`
	Error              string            `json:"error,omitempty"`
}

// PotentialMatch is a candidate enriched with a full confidence analysis.
type PotentialMatch struct {
	Candidate  *CandidateMatch   `json:"candidate"`
	Analysis   *MatchAnalysis    `json:"analysis"`
	Confidence *ConfidenceResult `json:"confidence"`
}

// FindMatchesRequest is the request body for candidate search.
type FindMatchesRequest struct {
	Entity CandidateEntity `json:"entity"`
	Limit  int             `json:"limit,omitempty"`
}

// CandidateEntity is the query-side entity payload for candidate search. It
// mirrors the stored entity shape without requiring the record to exist yet.
type CandidateEntity struct {
	EntityID    string            `json:"entity_id,omitempty"`
	EntityType  string            `json:"entity_type,omitempty"`
	Name        string            `json:"name"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
}

// UpdateScoringConfigRequest is the admin request to replace the scoring
// configuration. Applied all-or-nothing.
type UpdateScoringConfigRequest struct {
	AttributeWeights      map[string]float64 `json:"attribute_weights"`
	LikelyRejectThreshold float64            `json:"likely_reject_threshold"`
	ManualReviewThreshold float64            `json:"manual_review_threshold"`
	AutoConfirmThreshold  float64            `json:"auto_confirm_threshold"`
	MatchThreshold        float64            `json:"match_threshold"`
	PartialThreshold      float64            `json:"partial_threshold"`
	FuzzyIdentifiers      bool               `json:"fuzzy_identifiers"`
}
