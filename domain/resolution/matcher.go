package resolution

import (
	"sort"
	"strings"
	"unicode"

	"github.com/linkage-labs/linkage/domain/entity"
	"github.com/linkage-labs/linkage/pkg/mathutil"
)

// AttributeMatcher compares two entities category by category and classifies
// each comparable category as matched, partial, or no-match. Comparisons are
// symmetric: Analyze(a, b) and Analyze(b, a) produce the same scores.
type AttributeMatcher struct {
	configs *ConfigStore
}

// NewAttributeMatcher creates a matcher backed by the live scoring config.
func NewAttributeMatcher(configs *ConfigStore) *AttributeMatcher {
	return &AttributeMatcher{configs: configs}
}

// Analyze compares source and target across name, identifiers, contact, and
// date of birth. A category is comparable only when both sides carry data for
// it; categories missing on either side are omitted entirely. When nothing is
// comparable the analysis degenerates to an overall score of zero with every
// category recorded as no-match.
func (m *AttributeMatcher) Analyze(source, target *entity.Entity) *MatchAnalysis {
	cfg := m.configs.Load()

	analysis := &MatchAnalysis{
		MatchedAttributes: []string{},
		PartialMatches:    []string{},
		NoMatches:         []string{},
		SimilarityScores:  map[string]float64{},
		Details:           []AttributeMatch{},
	}

	if score, reason, ok := m.compareNames(source, target); ok {
		m.record(analysis, cfg, CategoryName, score, reason)
	}
	if score, reason, ok := m.compareIdentifiers(source, target, cfg); ok {
		m.record(analysis, cfg, CategoryIdentifiers, score, reason)
	}
	if score, reason, ok := m.compareContact(source, target); ok {
		m.record(analysis, cfg, CategoryContact, score, reason)
	}
	if score, reason, ok := m.compareDOB(source, target); ok {
		m.record(analysis, cfg, CategoryDOB, score, reason)
	}

	if len(analysis.SimilarityScores) == 0 {
		for _, category := range []string{CategoryName, CategoryIdentifiers, CategoryContact, CategoryDOB} {
			analysis.NoMatches = append(analysis.NoMatches, category)
			analysis.Details = append(analysis.Details, AttributeMatch{
				Category: category,
				Class:    ClassNoMatch,
				Reason:   "insufficient data on one or both entities",
			})
		}
		return analysis
	}

	var sum float64
	for _, s := range analysis.SimilarityScores {
		sum += s
	}
	analysis.OverallMatchScore = mathutil.Round3(sum / float64(len(analysis.SimilarityScores)))
	return analysis
}

// record classifies a category score against the configured thresholds and
// files it into the analysis.
func (m *AttributeMatcher) record(a *MatchAnalysis, cfg ScoringConfig, category string, score float64, reason string) {
	score = mathutil.Clamp01(score)
	class := ClassNoMatch
	switch {
	case score >= cfg.MatchThreshold:
		class = ClassMatched
		a.MatchedAttributes = append(a.MatchedAttributes, category)
	case score >= cfg.PartialThreshold:
		class = ClassPartial
		a.PartialMatches = append(a.PartialMatches, category)
	default:
		a.NoMatches = append(a.NoMatches, category)
	}
	a.SimilarityScores[category] = mathutil.Round3(score)
	a.Details = append(a.Details, AttributeMatch{
		Category: category,
		Score:    mathutil.Round3(score),
		Class:    class,
		Reason:   reason,
	})
}

func (m *AttributeMatcher) compareNames(source, target *entity.Entity) (float64, string, bool) {
	a, b := source.FullName(), target.FullName()
	if a == "" || b == "" {
		return 0, "", false
	}
	if strings.EqualFold(normalizeName(a), normalizeName(b)) {
		return 1.0, "exact name match", true
	}
	if aliasHit(a, target.Aliases()) || aliasHit(b, source.Aliases()) {
		return 0.95, "name matches a known alias", true
	}
	return NameSimilarity(a, b), "token similarity", true
}

// aliasHit reports whether name equals any alias, case-insensitively.
func aliasHit(name string, aliases []string) bool {
	n := normalizeName(name)
	for _, alias := range aliases {
		if strings.EqualFold(n, normalizeName(alias)) {
			return true
		}
	}
	return false
}

// NameSimilarity computes a symmetric token-overlap similarity in [0, 1].
// Exact token matches count fully; prefix relationships between tokens of at
// least three characters earn partial credit, so "Sam" still resembles
// "Samantha" without being mistaken for an exact match.
func NameSimilarity(a, b string) float64 {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	exact := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			exact++
		}
	}

	// Prefix credit for tokens not already matched exactly.
	prefix := 0
	for x := range ta {
		if _, ok := tb[x]; ok {
			continue
		}
		for y := range tb {
			if _, ok := ta[y]; ok {
				continue
			}
			if tokenPrefix(x, y) {
				prefix++
				break
			}
		}
	}

	denom := len(ta)
	if len(tb) > denom {
		denom = len(tb)
	}
	return mathutil.Clamp01((float64(exact) + 0.3*float64(prefix)) / float64(denom))
}

func tokenPrefix(x, y string) bool {
	if len(x) < 3 || len(y) < 3 {
		return false
	}
	return strings.HasPrefix(x, y) || strings.HasPrefix(y, x)
}

func nameTokens(s string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, t := range strings.FieldsFunc(normalizeName(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[t] = struct{}{}
	}
	return tokens
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// compareIdentifiers scores the shared identifier types. Types present on only
// one side are ignored; zero shared types scores 0 and never classifies above
// no-match, since absence of overlap carries no positive signal.
func (m *AttributeMatcher) compareIdentifiers(source, target *entity.Entity, cfg ScoringConfig) (float64, string, bool) {
	if len(source.Identifiers) == 0 || len(target.Identifiers) == 0 {
		return 0, "", false
	}

	shared := make([]string, 0, len(source.Identifiers))
	for idType := range source.Identifiers {
		if _, ok := target.Identifiers[idType]; ok {
			shared = append(shared, idType)
		}
	}
	if len(shared) == 0 {
		return 0, "no shared identifier types", true
	}
	sort.Strings(shared)

	matches := 0.0
	for _, idType := range shared {
		sv := normalizeIdentifier(source.Identifiers[idType])
		tv := normalizeIdentifier(target.Identifiers[idType])
		switch {
		case sv == tv:
			matches++
		case cfg.FuzzyIdentifiers && identifierNear(sv, tv):
			matches += 0.8
		}
	}
	return matches / float64(len(shared)), "exact comparison over shared identifier types", true
}

func normalizeIdentifier(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// identifierNear allows a single-character discrepancy between equal-length
// identifier values. Only consulted in fuzzy mode.
func identifierNear(a, b string) bool {
	if len(a) != len(b) || len(a) < 4 {
		return false
	}
	diff := 0
	for i := range a {
		if a[i] != b[i] {
			diff++
			if diff > 1 {
				return false
			}
		}
	}
	return diff == 1
}

// compareContact scores email, phone, and address sub-fields, each only when
// both sides carry it. The category score is the fraction of performed
// comparisons that matched.
func (m *AttributeMatcher) compareContact(source, target *entity.Entity) (float64, string, bool) {
	comparisons, matches := 0, 0.0

	if se, te := source.Email(), target.Email(); se != "" && te != "" {
		comparisons++
		if strings.EqualFold(strings.TrimSpace(se), strings.TrimSpace(te)) {
			matches++
		}
	}
	if sp, tp := normalizePhone(source.Phone()), normalizePhone(target.Phone()); sp != "" && tp != "" {
		comparisons++
		if sp == tp {
			matches++
		}
	}
	if sa, ta := source.AddressLine(), target.AddressLine(); sa != "" && ta != "" {
		comparisons++
		if NameSimilarity(sa, ta) >= 0.8 {
			matches++
		}
	}

	if comparisons == 0 {
		return 0, "", false
	}
	return matches / float64(comparisons), "email, phone, and address comparison", true
}

// normalizePhone strips everything but digits so formatting differences never
// fail a comparison.
func normalizePhone(p string) string {
	var b strings.Builder
	for _, r := range p {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// compareDOB compares ISO dates with graded credit: exact 1.0, same year and
// month 0.6, same year 0.3.
func (m *AttributeMatcher) compareDOB(source, target *entity.Entity) (float64, string, bool) {
	if source.DateOfBirth == nil || target.DateOfBirth == nil {
		return 0, "", false
	}
	sd := strings.TrimSpace(*source.DateOfBirth)
	td := strings.TrimSpace(*target.DateOfBirth)
	if sd == "" || td == "" {
		return 0, "", false
	}
	if sd == td {
		return 1.0, "exact date of birth match", true
	}
	if len(sd) >= 7 && len(td) >= 7 && sd[:7] == td[:7] {
		return 0.6, "same birth year and month", true
	}
	if len(sd) >= 4 && len(td) >= 4 && sd[:4] == td[:4] {
		return 0.3, "same birth year", true
	}
	return 0, "dates of birth differ", true
}
