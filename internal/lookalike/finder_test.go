package lookalike

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
	"github.com/ArunBNiah/venue-intel/internal/storage/models"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
	"github.com/ArunBNiah/venue-intel/internal/vector/milvus"
)

type fakeVectors struct {
	upserted  []milvus.VenueSignature
	matches   []milvus.Match
	lastQuery []float32
	lastCity  string
}

func (f *fakeVectors) Upsert(ctx context.Context, signatures []milvus.VenueSignature) error {
	f.upserted = append(f.upserted, signatures...)
	return nil
}

func (f *fakeVectors) SearchSimilar(ctx context.Context, signature []float32, topK int, city, excludePlaceID string) ([]milvus.Match, error) {
	f.lastQuery = signature
	f.lastCity = city
	if topK < len(f.matches) {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

func fptr(v float64) *float64 { return &v }

func TestSignature(t *testing.T) {
	b := scoring.ScoreBreakdown{
		VScore:         0.9,
		RScore:         0.92,
		MScore:         0.813,
		TypeScore:      1.0,
		PriceScore:     0.8,
		AttributeScore: 0.3,
		KeywordScore:   0.7,
	}

	sig := Signature(b)
	require.Len(t, sig, milvus.SignatureDim)
	assert.InDelta(t, 0.9, float64(sig[0]), 1e-6)
	assert.InDelta(t, 1.0, float64(sig[3]), 1e-6)
	// Absent theme maps to the neutral midpoint.
	assert.InDelta(t, 0.5, float64(sig[7]), 1e-6)

	b.ThemeScore = fptr(0.85)
	b.TypeScore = -1.0
	sig = Signature(b)
	assert.InDelta(t, 0.0, float64(sig[3]), 1e-6)
	assert.InDelta(t, 0.85, float64(sig[7]), 1e-6)
}

func seedDB(t *testing.T) *sqlite.Client {
	t.Helper()
	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })

	for i, id := range []string{"p1", "p2", "p3"} {
		v := models.Venue{
			PlaceID:         id,
			Name:            "Venue " + id,
			City:            "london",
			PrimaryCategory: "cocktail_bar",
		}
		require.NoError(t, db.UpsertVenue(&v))

		s := models.VenueScore{
			PlaceID:        id,
			Profile:        "premium_spirits",
			FitScore:       80.0 - float64(i)*10,
			Rank:           i + 1,
			VScore:         0.9 - float64(i)*0.2,
			RScore:         0.9,
			MScore:         0.8,
			TypeScore:      1.0,
			PriceScore:     0.8,
			AttributeScore: 0.4,
			KeywordScore:   0.6,
			VolumeTier:     "high",
			QualityTier:    "excellent",
			PriceTier:      "premium",
			Confidence:     "high",
			ScoredAt:       time.Unix(1760000000, 0),
		}
		require.NoError(t, db.SaveScores([]models.VenueScore{s}))
	}
	return db
}

func TestIndexCity(t *testing.T) {
	db := seedDB(t)
	vectors := &fakeVectors{}
	finder := NewFinder(db, vectors)

	count, err := finder.IndexCity(context.Background(), "london", "premium_spirits")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, vectors.upserted, 3)

	first := vectors.upserted[0]
	assert.Equal(t, "p1", first.PlaceID)
	assert.Equal(t, "london", first.City)
	assert.Equal(t, "premium_spirits", first.Profile)
	require.Len(t, first.Signature, milvus.SignatureDim)
	assert.InDelta(t, 0.9, float64(first.Signature[0]), 1e-6)
}

func TestIndexCityEmpty(t *testing.T) {
	db := seedDB(t)
	vectors := &fakeVectors{}
	finder := NewFinder(db, vectors)

	count, err := finder.IndexCity(context.Background(), "tokyo", "premium_spirits")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, vectors.upserted)
}

func TestSuccessProfileAveragesSeeds(t *testing.T) {
	db := seedDB(t)
	finder := NewFinder(db, &fakeVectors{})

	target, err := finder.SuccessProfile([]string{"p1", "p2"}, "london", "premium_spirits")
	require.NoError(t, err)
	require.Len(t, target, milvus.SignatureDim)

	// V scores are 0.9 and 0.7, the mean is 0.8.
	assert.InDelta(t, 0.8, float64(target[0]), 1e-6)
	assert.InDelta(t, 0.9, float64(target[1]), 1e-6)
}

func TestSuccessProfileUnknownSeed(t *testing.T) {
	db := seedDB(t)
	finder := NewFinder(db, &fakeVectors{})

	_, err := finder.SuccessProfile([]string{"missing"}, "london", "premium_spirits")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored score")
}

func TestLookalikesExcludesSeeds(t *testing.T) {
	db := seedDB(t)
	vectors := &fakeVectors{
		matches: []milvus.Match{
			{PlaceID: "p1", FitScore: 80},
			{PlaceID: "p3", FitScore: 60},
			{PlaceID: "p9", FitScore: 55},
		},
	}
	finder := NewFinder(db, vectors)

	got, err := finder.Lookalikes(context.Background(), []string{"p1"}, "london", "", "premium_spirits", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p3", got[0].PlaceID)
	assert.Equal(t, "p9", got[1].PlaceID)

	// An empty target defaults to the seed market.
	assert.Equal(t, "london", vectors.lastCity)
}

func TestLookalikesCrossMarket(t *testing.T) {
	db := seedDB(t)
	vectors := &fakeVectors{
		matches: []milvus.Match{
			{PlaceID: "m1", City: "manchester", FitScore: 72},
			{PlaceID: "m2", City: "manchester", FitScore: 65},
		},
	}
	finder := NewFinder(db, vectors)

	// Seeds resolve against london scores while the search runs in the
	// target market, so london seed IDs need no exclusion there.
	got, err := finder.Lookalikes(context.Background(), []string{"p1", "p2"}, "london", "manchester", "premium_spirits", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].PlaceID)
	assert.Equal(t, "manchester", vectors.lastCity)

	// The query vector is still the seeds' averaged london signature.
	require.Len(t, vectors.lastQuery, milvus.SignatureDim)
	assert.InDelta(t, 0.8, float64(vectors.lastQuery[0]), 1e-6)
}

func TestResolveAccounts(t *testing.T) {
	db := seedDB(t)
	for _, v := range []models.Venue{
		{PlaceID: "p4", Name: "The Gilded Lily", City: "london", PrimaryCategory: "cocktail_bar"},
		{PlaceID: "p5", Name: "Satan's Whiskers", City: "london", PrimaryCategory: "cocktail_bar"},
	} {
		require.NoError(t, db.UpsertVenue(&v))
	}
	finder := NewFinder(db, &fakeVectors{})

	resolved, unmatched, err := finder.ResolveAccounts("london", []string{
		"gilded lily",      // normalised exact after "the " is stripped
		"Satans Whiskers",  // punctuation differences
		"Gilded",           // containment
		"Whiskers Satan's", // token overlap, reordered
		"No Such Place Anywhere",
	})
	require.NoError(t, err)
	assert.Equal(t, "p4", resolved["gilded lily"])
	assert.Equal(t, "p5", resolved["Satans Whiskers"])
	assert.Equal(t, "p4", resolved["Gilded"])
	assert.Equal(t, "p5", resolved["Whiskers Satan's"])
	assert.Equal(t, []string{"No Such Place Anywhere"}, unmatched)
}
