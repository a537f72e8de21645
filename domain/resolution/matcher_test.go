package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkage-labs/linkage/domain/entity"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	s := &ConfigStore{}
	require.NoError(t, s.Update(DefaultScoringConfig()))
	return s
}

func strPtr(s string) *string { return &s }

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "John Smith", b: "John Smith", want: 1.0},
		{name: "case and whitespace insensitive", a: "  john SMITH ", b: "John Smith", want: 1.0},
		{name: "shared surname with prefix given name", a: "Sam Miller", b: "Samantha Miller", want: 0.65},
		{name: "no overlap", a: "John Smith", b: "Maria Garcia", want: 0},
		{name: "partial token overlap", a: "Acme Corp", b: "Acme Holdings", want: 0.5},
		{name: "extra token dilutes", a: "John Smith", b: "John Albert Smith", want: 2.0 / 3.0},
		{name: "empty side", a: "", b: "John", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NameSimilarity(tt.a, tt.b), 0.001)
		})
	}
}

func TestNameSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Sam Miller", "Samantha Miller"},
		{"John Smith", "John Albert Smith"},
		{"Acme Corp", "Acme Holdings Ltd"},
	}
	for _, p := range pairs {
		assert.Equal(t, NameSimilarity(p[0], p[1]), NameSimilarity(p[1], p[0]), "pair %v", p)
	}
}

func TestAnalyzeNames(t *testing.T) {
	m := NewAttributeMatcher(newTestConfigStore(t))

	t.Run("exact match", func(t *testing.T) {
		a := &entity.Entity{EntityID: "a", Name: entity.Name{Full: "John Smith"}}
		b := &entity.Entity{EntityID: "b", Name: entity.Name{Full: "john smith"}}

		got := m.Analyze(a, b)
		assert.Equal(t, []string{CategoryName}, got.MatchedAttributes)
		assert.InDelta(t, 1.0, got.SimilarityScores[CategoryName], 0.001)
		assert.InDelta(t, 1.0, got.OverallMatchScore, 0.001)
	})

	t.Run("alias hit scores just below exact", func(t *testing.T) {
		a := &entity.Entity{EntityID: "a", Name: entity.Name{Full: "Robert Jones"}}
		b := &entity.Entity{EntityID: "b", Name: entity.Name{Full: "Bob J", Aliases: []string{"Robert Jones"}}}

		got := m.Analyze(a, b)
		assert.InDelta(t, 0.95, got.SimilarityScores[CategoryName], 0.001)
		assert.Equal(t, []string{CategoryName}, got.MatchedAttributes)
	})

	t.Run("prefix similarity classifies partial", func(t *testing.T) {
		a := &entity.Entity{EntityID: "a", Name: entity.Name{Full: "Sam Miller"}}
		b := &entity.Entity{EntityID: "b", Name: entity.Name{Full: "Samantha Miller"}}

		got := m.Analyze(a, b)
		assert.Equal(t, []string{CategoryName}, got.PartialMatches)
		assert.InDelta(t, 0.65, got.SimilarityScores[CategoryName], 0.001)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := &entity.Entity{EntityID: "a", Name: entity.Name{Full: "Sam Miller"}, DateOfBirth: strPtr("1985-03-15")}
		b := &entity.Entity{EntityID: "b", Name: entity.Name{Full: "Samantha Miller"}, DateOfBirth: strPtr("1985-07-01")}

		ab, ba := m.Analyze(a, b), m.Analyze(b, a)
		assert.Equal(t, ab.SimilarityScores, ba.SimilarityScores)
		assert.Equal(t, ab.OverallMatchScore, ba.OverallMatchScore)
	})
}

func TestAnalyzeIdentifiers(t *testing.T) {
	m := NewAttributeMatcher(newTestConfigStore(t))

	base := func(ids map[string]string) *entity.Entity {
		return &entity.Entity{Name: entity.Name{Full: "X Y"}, Identifiers: ids}
	}

	t.Run("exact match over shared type", func(t *testing.T) {
		got := m.Analyze(
			base(map[string]string{"ssn": "123-45-6789"}),
			base(map[string]string{"ssn": "123-45-6789"}),
		)
		assert.Contains(t, got.MatchedAttributes, CategoryIdentifiers)
		assert.InDelta(t, 1.0, got.SimilarityScores[CategoryIdentifiers], 0.001)
	})

	t.Run("half of shared types match", func(t *testing.T) {
		got := m.Analyze(
			base(map[string]string{"ssn": "123", "passport": "A1"}),
			base(map[string]string{"ssn": "123", "passport": "B2"}),
		)
		assert.Contains(t, got.PartialMatches, CategoryIdentifiers)
		assert.InDelta(t, 0.5, got.SimilarityScores[CategoryIdentifiers], 0.001)
	})

	t.Run("no shared types is no-match, never partial", func(t *testing.T) {
		got := m.Analyze(
			base(map[string]string{"ssn": "123"}),
			base(map[string]string{"passport": "A1"}),
		)
		assert.Contains(t, got.NoMatches, CategoryIdentifiers)
		assert.InDelta(t, 0.0, got.SimilarityScores[CategoryIdentifiers], 0.001)
	})

	t.Run("missing on one side omits the category", func(t *testing.T) {
		got := m.Analyze(base(map[string]string{"ssn": "123"}), base(nil))
		_, ok := got.SimilarityScores[CategoryIdentifiers]
		assert.False(t, ok)
	})

	t.Run("fuzzy mode credits near identifiers", func(t *testing.T) {
		store := newTestConfigStore(t)
		cfg := DefaultScoringConfig()
		cfg.FuzzyIdentifiers = true
		require.NoError(t, store.Update(cfg))

		got := NewAttributeMatcher(store).Analyze(
			base(map[string]string{"ssn": "123456789"}),
			base(map[string]string{"ssn": "123456780"}),
		)
		assert.InDelta(t, 0.8, got.SimilarityScores[CategoryIdentifiers], 0.001)
	})
}

func TestAnalyzeContact(t *testing.T) {
	m := NewAttributeMatcher(newTestConfigStore(t))

	t.Run("phone formatting normalized", func(t *testing.T) {
		a := &entity.Entity{Name: entity.Name{Full: "X"}, Contact: &entity.Contact{Phone: "+1 (555) 010-2000"}}
		b := &entity.Entity{Name: entity.Name{Full: "X"}, Contact: &entity.Contact{Phone: "15550102000"}}

		got := m.Analyze(a, b)
		assert.InDelta(t, 1.0, got.SimilarityScores[CategoryContact], 0.001)
	})

	t.Run("email matches phone differs", func(t *testing.T) {
		a := &entity.Entity{Name: entity.Name{Full: "X"}, Contact: &entity.Contact{Email: "J@x.com", Phone: "111"}}
		b := &entity.Entity{Name: entity.Name{Full: "X"}, Contact: &entity.Contact{Email: "j@x.com", Phone: "222"}}

		got := m.Analyze(a, b)
		assert.InDelta(t, 0.5, got.SimilarityScores[CategoryContact], 0.001)
		assert.Contains(t, got.PartialMatches, CategoryContact)
	})

	t.Run("no shared sub-fields omits the category", func(t *testing.T) {
		a := &entity.Entity{Name: entity.Name{Full: "X"}, Contact: &entity.Contact{Email: "j@x.com"}}
		b := &entity.Entity{Name: entity.Name{Full: "X"}, Contact: &entity.Contact{Phone: "222"}}

		got := m.Analyze(a, b)
		_, ok := got.SimilarityScores[CategoryContact]
		assert.False(t, ok)
	})
}

func TestAnalyzeDOB(t *testing.T) {
	m := NewAttributeMatcher(newTestConfigStore(t))

	pair := func(a, b string) (*entity.Entity, *entity.Entity) {
		return &entity.Entity{Name: entity.Name{Full: "X"}, DateOfBirth: strPtr(a)},
			&entity.Entity{Name: entity.Name{Full: "X"}, DateOfBirth: strPtr(b)}
	}

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "exact", a: "1985-03-15", b: "1985-03-15", want: 1.0},
		{name: "same year and month", a: "1985-03-15", b: "1985-03-20", want: 0.6},
		{name: "same year only", a: "1985-03-15", b: "1985-11-02", want: 0.3},
		{name: "different year", a: "1985-03-15", b: "1990-03-15", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := pair(tt.a, tt.b)
			got := m.Analyze(a, b)
			assert.InDelta(t, tt.want, got.SimilarityScores[CategoryDOB], 0.001)
		})
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	m := NewAttributeMatcher(newTestConfigStore(t))

	a := &entity.Entity{EntityID: "a", Name: entity.Name{Full: "Only Name"}}
	b := &entity.Entity{EntityID: "b", Identifiers: map[string]string{"ssn": "123"}}

	got := m.Analyze(a, b)
	assert.Empty(t, got.SimilarityScores)
	assert.Zero(t, got.OverallMatchScore)
	assert.Len(t, got.NoMatches, 4)
	for _, d := range got.Details {
		assert.Equal(t, ClassNoMatch, d.Class)
	}
}
