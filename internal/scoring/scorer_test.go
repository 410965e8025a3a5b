package scoring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedScorer(t *testing.T) *Scorer {
	t.Helper()
	s := NewScorer(DefaultRules(), 50)
	s.now = func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func flagshipVenue(fetchedAt time.Time) RawVenueAttributes {
	return RawVenueAttributes{
		PlaceID:          "place-flagship",
		Name:             "The Vault",
		City:             "london",
		PrimaryCategory:  "cocktail_bar",
		Categories:       []string{"cocktail_bar", "bar"},
		Rating:           fptr(4.6),
		ReviewCount:      iptr(1706),
		PriceLevel:       iptr(3),
		EditorialSummary: "Intimate mixology den with rare whisky flights.",
		FetchedAt:        fetchedAt,
	}
}

func sparseFastFood() RawVenueAttributes {
	return RawVenueAttributes{
		PlaceID:         "place-sparse",
		Name:            "Quick Bite",
		City:            "london",
		PrimaryCategory: "fast_food_restaurant",
		Categories:      []string{"fast_food_restaurant"},
	}
}

func fillerVenue(id string, reviews int) RawVenueAttributes {
	return RawVenueAttributes{
		PlaceID:         id,
		Name:            id,
		City:            "london",
		PrimaryCategory: "bar",
		Categories:      []string{"bar"},
		Rating:          fptr(4.0),
		ReviewCount:     iptr(reviews),
		PriceLevel:      iptr(2),
		FetchedAt:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestScoreBatchFlagshipScenario(t *testing.T) {
	s := fixedScorer(t)
	fetched := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	venues := []RawVenueAttributes{
		flagshipVenue(fetched),
		fillerVenue("p1", 800),
		fillerVenue("p2", 300),
		fillerVenue("p3", 120),
		fillerVenue("p4", 40),
	}

	records, err := s.ScoreBatch(venues, nil, premiumSpirits(t))
	require.NoError(t, err)
	require.Len(t, records, 5)

	top := records[0]
	assert.Equal(t, "place-flagship", top.PlaceID)
	assert.Equal(t, 1, top.Rank)

	b := top.Breakdown
	assert.InDelta(t, 0.9, b.VScore, 1e-9)
	assert.InDelta(t, 0.92, b.RScore, 1e-9)
	assert.Equal(t, 1.0, b.TypeScore)
	assert.Equal(t, 0.8, b.PriceScore)
	assert.Equal(t, 0.3, b.AttributeScore)
	assert.Equal(t, 0.7, b.KeywordScore)
	assert.Nil(t, b.ThemeScore)
	assert.InDelta(t, 0.813, b.MScore, 1e-9)

	assert.Equal(t, VolumeHigh, b.VolumeTier)
	assert.Equal(t, QualityExcellent, b.QualityTier)
	assert.Equal(t, PricePremium, b.PriceTier)
	assert.Equal(t, ConfidenceHigh, b.Confidence)
	assert.True(t, b.MissingAttributes)

	assert.InDelta(t, 86.1, top.FitScore, 1e-9)
	assert.NotEmpty(t, top.Rationale)
	assert.Equal(t, "premium_spirits", top.Profile)
}

func TestScoreBatchSparseVenueScoresNearZero(t *testing.T) {
	s := fixedScorer(t)

	venues := []RawVenueAttributes{
		sparseFastFood(),
		fillerVenue("p1", 800),
		fillerVenue("p2", 300),
	}

	records, err := s.ScoreBatch(venues, nil, premiumSpirits(t))
	require.NoError(t, err)

	var sparse VenueScoreRecord
	for _, r := range records {
		if r.PlaceID == "place-sparse" {
			sparse = r
		}
	}
	require.Equal(t, "place-sparse", sparse.PlaceID)

	b := sparse.Breakdown
	assert.Equal(t, 0.0, b.VScore)
	assert.Equal(t, 0.0, b.RScore)
	assert.Equal(t, -1.0, b.TypeScore)
	assert.Equal(t, 0.3, b.PriceScore)
	assert.Equal(t, 0.3, b.AttributeScore)
	assert.Equal(t, 0.0, b.KeywordScore)
	assert.InDelta(t, 0.131, b.MScore, 1e-9)

	assert.Equal(t, VolumeVeryLow, b.VolumeTier)
	assert.Equal(t, PriceUnknown, b.PriceTier)
	assert.Equal(t, ConfidenceLow, b.Confidence)
	assert.True(t, b.MissingAttributes)

	assert.InDelta(t, 6.6, sparse.FitScore, 1e-9)
	assert.Contains(t, sparse.Rationale, "Low data confidence.")
	assert.Equal(t, 3, sparse.Rank)
}

func TestScoreBatchRanksDescending(t *testing.T) {
	s := fixedScorer(t)

	venues := []RawVenueAttributes{
		fillerVenue("p1", 40),
		flagshipVenue(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)),
		sparseFastFood(),
		fillerVenue("p2", 900),
	}

	records, err := s.ScoreBatch(venues, nil, premiumSpirits(t))
	require.NoError(t, err)

	for i := 1; i < len(records); i++ {
		assert.GreaterOrEqual(t, records[i-1].FitScore, records[i].FitScore)
		assert.Equal(t, i+1, records[i].Rank)
	}
}

func TestScoreBatchSubScoreRanges(t *testing.T) {
	s := fixedScorer(t)

	venues := []RawVenueAttributes{
		flagshipVenue(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)),
		sparseFastFood(),
		fillerVenue("p1", 12000),
		fillerVenue("p2", 3),
	}
	themes := map[string][]ThemeExtraction{
		"p1": {{Label: ThemePriceValueFocus, Presence: ThemePresent}},
	}

	for _, profile := range BuiltinProfiles() {
		records, err := s.ScoreBatch(venues, themes, profile)
		require.NoError(t, err)

		for _, r := range records {
			b := r.Breakdown
			for name, v := range map[string]float64{
				"v": b.VScore, "r": b.RScore, "m": b.MScore,
				"price": b.PriceScore, "attribute": b.AttributeScore, "keyword": b.KeywordScore,
			} {
				assert.GreaterOrEqual(t, v, 0.0, "%s for %s", name, r.PlaceID)
				assert.LessOrEqual(t, v, 1.0, "%s for %s", name, r.PlaceID)
			}
			assert.GreaterOrEqual(t, b.TypeScore, -1.0)
			assert.LessOrEqual(t, b.TypeScore, 1.0)
			if b.ThemeScore != nil {
				assert.GreaterOrEqual(t, *b.ThemeScore, 0.0)
				assert.LessOrEqual(t, *b.ThemeScore, 1.0)
			}
			assert.GreaterOrEqual(t, r.FitScore, 0.0)
			assert.LessOrEqual(t, r.FitScore, 100.0)
		}
	}
}

func TestTypeSubScoreIdenticalAcrossProfiles(t *testing.T) {
	s := fixedScorer(t)
	venues := []RawVenueAttributes{
		flagshipVenue(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)),
		fillerVenue("p1", 500),
	}

	byProfile := map[string]ScoreBreakdown{}
	for _, profile := range BuiltinProfiles() {
		records, err := s.ScoreBatch(venues, nil, profile)
		require.NoError(t, err)
		for _, r := range records {
			if r.PlaceID == "place-flagship" {
				byProfile[profile.Name] = r.Breakdown
			}
		}
	}

	base := byProfile["premium_spirits"]
	for name, b := range byProfile {
		assert.Equal(t, base.TypeScore, b.TypeScore, name)
		assert.Equal(t, base.PriceScore, b.PriceScore, name)
		assert.Equal(t, base.AttributeScore, b.AttributeScore, name)
		assert.Equal(t, base.KeywordScore, b.KeywordScore, name)
		assert.Equal(t, base.VScore, b.VScore, name)
		assert.Equal(t, base.RScore, b.RScore, name)
	}
}

func TestStaleDataCapsConfidence(t *testing.T) {
	s := fixedScorer(t)
	stale := flagshipVenue(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))

	records, err := s.ScoreBatch([]RawVenueAttributes{stale, fillerVenue("p1", 500)}, nil, premiumSpirits(t))
	require.NoError(t, err)

	top := records[0]
	require.Equal(t, "place-flagship", top.PlaceID)
	assert.Greater(t, top.Breakdown.FreshnessAgeDays, FreshnessCapDays)
	assert.Equal(t, ConfidenceMedium, top.Breakdown.Confidence)
}

func TestScoreBatchRejectsInvalidProfile(t *testing.T) {
	s := fixedScorer(t)
	_, err := s.ScoreBatch([]RawVenueAttributes{fillerVenue("p1", 100)}, nil, Profile{Name: "bad", WVolume: 0.9})
	assert.Error(t, err)
}

func TestRecalculateSwitchesProfileWithoutRefetch(t *testing.T) {
	s := fixedScorer(t)
	venues := []RawVenueAttributes{
		flagshipVenue(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)),
		fillerVenue("p1", 500),
		sparseFastFood(),
	}

	scored, err := s.ScoreBatch(venues, nil, premiumSpirits(t))
	require.NoError(t, err)

	var craft Profile
	for _, p := range BuiltinProfiles() {
		if p.Name == "craft_beer" {
			craft = p
		}
	}

	recalced, err := s.RecalculateBatch(scored, craft)
	require.NoError(t, err)
	require.Len(t, recalced, len(scored))

	fresh, err := s.ScoreBatch(venues, nil, craft)
	require.NoError(t, err)

	byID := func(records []VenueScoreRecord, id string) VenueScoreRecord {
		for _, r := range records {
			if r.PlaceID == id {
				return r
			}
		}
		t.Fatalf("record %s not found", id)
		return VenueScoreRecord{}
	}

	for _, id := range []string{"place-flagship", "p1", "place-sparse"} {
		a, b := byID(recalced, id), byID(fresh, id)
		assert.Equal(t, b.FitScore, a.FitScore, id)
		assert.Equal(t, b.Breakdown, a.Breakdown, id)
		assert.Equal(t, b.Rationale, a.Rationale, id)
		assert.Equal(t, "craft_beer", a.Profile)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	s := fixedScorer(t)
	scored, err := s.ScoreBatch([]RawVenueAttributes{
		flagshipVenue(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)),
		fillerVenue("p1", 500),
	}, nil, premiumSpirits(t))
	require.NoError(t, err)

	once, err := s.RecalculateBatch(scored, premiumSpirits(t))
	require.NoError(t, err)
	twice, err := s.RecalculateBatch(once, premiumSpirits(t))
	require.NoError(t, err)

	first, errA := json.Marshal(once)
	second, errB := json.Marshal(twice)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, first, second)
}

func TestRecalculateDoesNotMutateInput(t *testing.T) {
	s := fixedScorer(t)
	scored, err := s.ScoreBatch([]RawVenueAttributes{
		flagshipVenue(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)),
	}, nil, premiumSpirits(t))
	require.NoError(t, err)

	before := scored[0]
	var fineWine Profile
	for _, p := range BuiltinProfiles() {
		if p.Name == "fine_wine" {
			fineWine = p
		}
	}
	_, err = s.Recalculate(scored[0], fineWine)
	require.NoError(t, err)

	assert.Equal(t, before, scored[0])
}
