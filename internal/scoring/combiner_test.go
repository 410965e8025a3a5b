package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func premiumSpirits(t *testing.T) Profile {
	t.Helper()
	for _, p := range BuiltinProfiles() {
		if p.Name == "premium_spirits" {
			return p
		}
	}
	t.Fatal("premium_spirits profile missing")
	return Profile{}
}

func TestCombineRelevanceWithoutTheme(t *testing.T) {
	p := premiumSpirits(t)

	// Weights renormalise over type/price/attribute/keyword when no theme
	// extraction exists: 0.35/0.8, 0.25/0.8, 0.10/0.8, 0.10/0.8.
	got := CombineRelevance(p, 1.0, 0.8, 0.3, 0.7, nil)
	want := 0.4375*1.0 + 0.3125*0.8 + 0.125*0.3 + 0.125*0.7
	assert.InDelta(t, want, got, 1e-9)
}

func TestCombineRelevanceWithTheme(t *testing.T) {
	p := premiumSpirits(t)

	theme := 0.9
	got := CombineRelevance(p, 1.0, 0.8, 0.3, 0.7, &theme)
	want := 0.35*1.0 + 0.25*0.8 + 0.10*0.3 + 0.10*0.7 + 0.20*0.9
	assert.InDelta(t, want, got, 1e-9)
}

func TestCombineRelevanceNormalisesNegativeType(t *testing.T) {
	p := premiumSpirits(t)

	// A -1.0 type score contributes zero, not a negative pull below zero.
	got := CombineRelevance(p, -1.0, 0.0, 0.0, 0.0, nil)
	assert.Equal(t, 0.0, got)

	mid := CombineRelevance(p, 0.0, 0.0, 0.0, 0.0, nil)
	assert.InDelta(t, 0.4375*0.5, mid, 1e-9)
}

func TestCombineRelevanceStaysInUnitRange(t *testing.T) {
	p := premiumSpirits(t)
	one := 1.0
	assert.LessOrEqual(t, CombineRelevance(p, 1.0, 1.0, 1.0, 1.0, &one), 1.0)
	zero := 0.0
	assert.GreaterOrEqual(t, CombineRelevance(p, -1.0, 0.0, 0.0, 0.0, &zero), 0.0)
}

func TestFitScoreRangeAndRounding(t *testing.T) {
	p := premiumSpirits(t)

	full := FitScore(p, ScoreBreakdown{VScore: 1.0, RScore: 1.0, MScore: 1.0})
	assert.Equal(t, 100.0, full)

	empty := FitScore(p, ScoreBreakdown{})
	assert.Equal(t, 0.0, empty)

	// 0.25*0.9 + 0.25*0.92 + 0.5*0.813 = 0.8615, which sits just below the
	// half in binary, so rounding lands on 86.1 rather than 86.2.
	mixed := FitScore(p, ScoreBreakdown{VScore: 0.9, RScore: 0.92, MScore: 0.813})
	assert.InDelta(t, 86.1, mixed, 1e-9)
}

func TestRationaleDeterministic(t *testing.T) {
	p := premiumSpirits(t)
	b := ScoreBreakdown{
		VScore:         0.9,
		RScore:         0.92,
		MScore:         0.813,
		TypeScore:      1.0,
		PriceScore:     0.8,
		AttributeScore: 0.3,
		KeywordScore:   0.7,
		Confidence:     ConfidenceHigh,
	}

	first := Rationale(p, b)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Rationale(p, b))
	}
	assert.NotEmpty(t, first)
}

func TestRationaleNamesTopContributors(t *testing.T) {
	p := premiumSpirits(t)
	b := ScoreBreakdown{
		VScore:         0.95,
		RScore:         0.2,
		MScore:         0.9,
		TypeScore:      1.0,
		PriceScore:     0.4,
		AttributeScore: 0.3,
		KeywordScore:   0.5,
		Confidence:     ConfidenceHigh,
	}

	got := Rationale(p, b)
	// The leading phrase is sentence-cased by Rationale.
	assert.Contains(t, got, "High review volume in market")
	assert.Contains(t, got, "strong venue-type fit")
	assert.NotContains(t, got, "Low data confidence")
}

func TestRationaleLowConfidenceSuffix(t *testing.T) {
	p := premiumSpirits(t)
	b := ScoreBreakdown{
		TypeScore:  -1.0,
		PriceScore: 0.3,
		Confidence: ConfidenceLow,
	}

	got := Rationale(p, b)
	require.NotEmpty(t, got)
	assert.Contains(t, got, "misaligned")
	assert.Contains(t, got, "Low data confidence.")
}

func TestRationaleFallbackWhenNothingStandsOut(t *testing.T) {
	p := premiumSpirits(t)
	b := ScoreBreakdown{
		VScore:         0.1,
		RScore:         0.1,
		TypeScore:      0.0,
		PriceScore:     0.3,
		AttributeScore: 0.3,
		KeywordScore:   0.5,
		Confidence:     ConfidenceMedium,
	}

	assert.Equal(t, "Limited signals available for assessment.", Rationale(p, b))
}
