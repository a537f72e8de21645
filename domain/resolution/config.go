package resolution

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/linkage-labs/linkage/internal/config"
)

// ScoringConfig holds the tunable knobs of the matcher and scorer. Values are
// immutable once published; updates replace the whole config atomically.
type ScoringConfig struct {
	// AttributeWeights maps category name to its weight in the confidence
	// base score. Weights must sum to 1.
	AttributeWeights map[string]float64

	// Decision thresholds, strictly ascending.
	LikelyRejectThreshold float64
	ManualReviewThreshold float64
	AutoConfirmThreshold  float64

	// Per-category classification thresholds.
	MatchThreshold   float64
	PartialThreshold float64

	// FuzzyIdentifiers allows near-matches on identifier values instead of
	// requiring exact equality.
	FuzzyIdentifiers bool
}

// DefaultScoringConfig returns the built-in scoring configuration.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		AttributeWeights: map[string]float64{
			CategoryName:        0.4,
			CategoryIdentifiers: 0.3,
			CategoryContact:     0.2,
			CategoryDOB:         0.1,
		},
		LikelyRejectThreshold: 0.3,
		ManualReviewThreshold: 0.6,
		AutoConfirmThreshold:  0.9,
		MatchThreshold:        0.7,
		PartialThreshold:      0.4,
		FuzzyIdentifiers:      false,
	}
}

// ScoringConfigFromEnv builds the initial scoring configuration from the
// resolution section of the application config.
func ScoringConfigFromEnv(cfg config.ResolutionConfig) ScoringConfig {
	return ScoringConfig{
		AttributeWeights: map[string]float64{
			CategoryName:        cfg.NameWeight,
			CategoryIdentifiers: cfg.IdentifierWeight,
			CategoryContact:     cfg.ContactWeight,
			CategoryDOB:         cfg.DOBWeight,
		},
		LikelyRejectThreshold: cfg.LikelyRejectThreshold,
		ManualReviewThreshold: cfg.ManualReviewThreshold,
		AutoConfirmThreshold:  cfg.AutoConfirmThreshold,
		MatchThreshold:        cfg.MatchThreshold,
		PartialThreshold:      cfg.PartialThreshold,
		FuzzyIdentifiers:      cfg.FuzzyIdentifiers,
	}
}

// Validate checks the configuration invariants: weights sum to 1 (within a
// small tolerance), decision thresholds are strictly ascending in (0, 1), and
// the partial threshold sits below the match threshold.
func (c ScoringConfig) Validate() error {
	if len(c.AttributeWeights) == 0 {
		return fmt.Errorf("attribute weights are required")
	}
	var sum float64
	for category, w := range c.AttributeWeights {
		if w < 0 {
			return fmt.Errorf("weight for %q must be non-negative, got %v", category, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("attribute weights must sum to 1, got %v", sum)
	}
	if c.LikelyRejectThreshold <= 0 || c.AutoConfirmThreshold >= 1 {
		return fmt.Errorf("decision thresholds must lie in (0, 1)")
	}
	if !(c.LikelyRejectThreshold < c.ManualReviewThreshold && c.ManualReviewThreshold < c.AutoConfirmThreshold) {
		return fmt.Errorf("decision thresholds must be strictly ascending: likely_reject < manual_review < auto_confirm")
	}
	if c.PartialThreshold <= 0 || c.MatchThreshold >= 1 || c.PartialThreshold >= c.MatchThreshold {
		return fmt.Errorf("classification thresholds must satisfy 0 < partial < match < 1")
	}
	return nil
}

// clone returns a deep copy so published configs stay immutable.
func (c ScoringConfig) clone() ScoringConfig {
	weights := make(map[string]float64, len(c.AttributeWeights))
	for k, v := range c.AttributeWeights {
		weights[k] = v
	}
	c.AttributeWeights = weights
	return c
}

// ConfigStore publishes the active scoring configuration. Reads are lock-free;
// in-flight scoring keeps the snapshot it loaded, so an update never changes a
// computation mid-way.
type ConfigStore struct {
	current atomic.Pointer[ScoringConfig]
}

// NewConfigStore creates a store seeded from the application config, falling
// back to defaults when the seed does not validate.
func NewConfigStore(cfg *config.Config) (*ConfigStore, error) {
	s := &ConfigStore{}
	seed := ScoringConfigFromEnv(cfg.Resolution)
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resolution config: %w", err)
	}
	snapshot := seed.clone()
	s.current.Store(&snapshot)
	return s, nil
}

// Load returns the active configuration snapshot.
func (s *ConfigStore) Load() ScoringConfig {
	return *s.current.Load()
}

// Update validates and atomically publishes a new configuration. On validation
// failure the previous configuration stays in effect.
func (s *ConfigStore) Update(c ScoringConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	snapshot := c.clone()
	s.current.Store(&snapshot)
	return nil
}
