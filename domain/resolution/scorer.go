package resolution

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linkage-labs/linkage/pkg/mathutil"
)

// Quality multipliers applied to category scores by classification.
const (
	multiplierMatched = 1.0
	multiplierPartial = 0.5
	multiplierWeak    = 0.3
)

// Confidence level boundaries. Fixed, unlike the decision thresholds.
const (
	levelCriticalMin = 0.9
	levelHighMin     = 0.8
	levelMediumMin   = 0.6
	levelLowMin      = 0.3
)

// ConfidenceScorer turns a match analysis into a calibrated confidence score
// with a recommended action. Scoring is deterministic: the same analysis and
// config always produce the same result.
type ConfidenceScorer struct {
	configs *ConfigStore
}

// NewConfidenceScorer creates a scorer backed by the live scoring config.
func NewConfidenceScorer(configs *ConfigStore) *ConfidenceScorer {
	return &ConfidenceScorer{configs: configs}
}

// Score computes the final confidence for an analysis:
//
//	quality    = clamp01(weighted base x quality adjustments)
//	statistical = 0.6 x consistency + 0.4 x completeness
//	final      = round3(0.7 x quality + 0.3 x statistical)
//
// An analysis with no comparable categories scores zero and is rejected
// outright.
func (s *ConfidenceScorer) Score(analysis *MatchAnalysis) *ConfidenceResult {
	cfg := s.configs.Load()

	if len(analysis.SimilarityScores) == 0 {
		return s.build(cfg, 0, ConfidenceBreakdown{}, []string{
			"no comparable attributes between the two entities",
		})
	}

	base := s.weightedBase(cfg, analysis)
	quality := s.applyQualityAdjustments(base, analysis)

	consistency := s.consistency(analysis)
	completeness := s.completeness(cfg, analysis)
	statistical := 0.6*consistency + 0.4*completeness

	final := mathutil.Round3(0.7*quality + 0.3*statistical)

	breakdown := ConfidenceBreakdown{
		WeightedBase:    mathutil.Round3(base),
		QualityAdjusted: mathutil.Round3(quality),
		Consistency:     mathutil.Round3(consistency),
		Completeness:    mathutil.Round3(completeness),
		Statistical:     mathutil.Round3(statistical),
	}

	return s.build(cfg, final, breakdown, s.reasoning(analysis))
}

// weightedBase averages category scores weighted by the configured attribute
// weights, with each score discounted by its classification multiplier. Only
// comparable categories participate; their weights are renormalized so missing
// data is not punished twice.
func (s *ConfidenceScorer) weightedBase(cfg ScoringConfig, analysis *MatchAnalysis) float64 {
	classes := make(map[string]string, len(analysis.Details))
	for _, d := range analysis.Details {
		classes[d.Category] = d.Class
	}

	var weighted, totalWeight float64
	for category, score := range analysis.SimilarityScores {
		w := cfg.AttributeWeights[category]
		if w == 0 {
			continue
		}
		mult := multiplierWeak
		switch classes[category] {
		case ClassMatched:
			mult = multiplierMatched
		case ClassPartial:
			mult = multiplierPartial
		}
		weighted += score * mult * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

// applyQualityAdjustments rewards breadth of agreement and punishes its
// absence, then clamps to [0, 1].
func (s *ConfidenceScorer) applyQualityAdjustments(base float64, analysis *MatchAnalysis) float64 {
	adjusted := base
	switch {
	case len(analysis.MatchedAttributes) >= 3:
		adjusted *= 1.10
	case len(analysis.MatchedAttributes) == 2:
		adjusted *= 1.05
	}
	if len(analysis.MatchedAttributes) == 0 && len(analysis.PartialMatches) > 0 {
		adjusted *= 0.80
	}
	if analysis.OverallMatchScore >= 0.9 {
		adjusted *= 1.05
	}
	return mathutil.Clamp01(adjusted)
}

// consistency is high when the comparable categories agree with each other,
// regardless of whether they agree on match or mismatch.
func (s *ConfidenceScorer) consistency(analysis *MatchAnalysis) float64 {
	scores := make([]float64, 0, len(analysis.SimilarityScores))
	for _, v := range analysis.SimilarityScores {
		scores = append(scores, v)
	}
	v := mathutil.Variance(scores)
	if v > 1 {
		v = 1
	}
	return 1 - v
}

// completeness is the fraction of configured categories that were comparable.
func (s *ConfidenceScorer) completeness(cfg ScoringConfig, analysis *MatchAnalysis) float64 {
	if len(cfg.AttributeWeights) == 0 {
		return 0
	}
	frac := float64(len(analysis.SimilarityScores)) / float64(len(cfg.AttributeWeights))
	return mathutil.Clamp01(frac)
}

func (s *ConfidenceScorer) build(cfg ScoringConfig, score float64, breakdown ConfidenceBreakdown, reasoning []string) *ConfidenceResult {
	level := LevelVeryLow
	switch {
	case score >= levelCriticalMin:
		level = LevelCritical
	case score >= levelHighMin:
		level = LevelHigh
	case score >= levelMediumMin:
		level = LevelMedium
	case score >= levelLowMin:
		level = LevelLow
	}

	action := ActionReject
	met := "none"
	switch {
	case score >= cfg.AutoConfirmThreshold:
		action = ActionAutoConfirm
		met = "auto_confirm"
	case score >= cfg.ManualReviewThreshold:
		action = ActionManualReview
		met = "manual_review"
	case score >= cfg.LikelyRejectThreshold:
		action = ActionLikelyReject
		met = "likely_reject"
	}

	return &ConfidenceResult{
		ConfidenceScore:   score,
		ConfidenceLevel:   level,
		RecommendedAction: action,
		Breakdown:         breakdown,
		ThresholdAnalysis: ThresholdAnalysis{
			AutoConfirm:  cfg.AutoConfirmThreshold,
			ManualReview: cfg.ManualReviewThreshold,
			LikelyReject: cfg.LikelyRejectThreshold,
			MetThreshold: met,
		},
		Reasoning: reasoning,
		NextSteps: nextSteps(action),
	}
}

// reasoning produces deterministic human-readable statements, one per
// populated classification bucket, categories listed alphabetically.
func (s *ConfidenceScorer) reasoning(analysis *MatchAnalysis) []string {
	var out []string
	if cats := sortedCopy(analysis.MatchedAttributes); len(cats) > 0 {
		out = append(out, fmt.Sprintf("strong agreement on: %s", strings.Join(cats, ", ")))
	}
	if cats := sortedCopy(analysis.PartialMatches); len(cats) > 0 {
		out = append(out, fmt.Sprintf("partial agreement on: %s", strings.Join(cats, ", ")))
	}
	if cats := sortedCopy(analysis.NoMatches); len(cats) > 0 {
		out = append(out, fmt.Sprintf("no agreement on: %s", strings.Join(cats, ", ")))
	}
	out = append(out, fmt.Sprintf("overall attribute similarity %.3f", analysis.OverallMatchScore))
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func nextSteps(action string) string {
	switch action {
	case ActionAutoConfirm:
		return "confidence supports automatic confirmation; merge may proceed without review"
	case ActionManualReview:
		return "queue for manual review before confirming or dismissing"
	case ActionLikelyReject:
		return "weak evidence; dismiss unless additional identifiers become available"
	default:
		return "reject; the entities share no meaningful attributes"
	}
}
