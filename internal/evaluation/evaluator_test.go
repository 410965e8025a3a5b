package evaluation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArunBNiah/venue-intel/internal/storage/models"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func seedCity(t *testing.T) *sqlite.Client {
	t.Helper()

	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })

	names := []string{"The Connaught Bar", "Satan's Whiskers", "Corner Pub", "Swift", "Chain Grill"}
	fits := []float64{91.0, 84.5, 72.0, 65.0, 20.0}

	var rows []models.VenueScore
	for i, name := range names {
		v := models.Venue{
			PlaceID:         fmt.Sprintf("place-%d", i+1),
			Name:            name,
			City:            "london",
			PrimaryCategory: "cocktail_bar",
			Rating:          fptr(4.5),
			ReviewCount:     iptr(500),
			FetchedAt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, db.UpsertVenue(&v))

		rows = append(rows, models.VenueScore{
			PlaceID:     v.PlaceID,
			Profile:     "premium_spirits",
			FitScore:    fits[i],
			Rank:        i + 1,
			VolumeTier:  "high",
			QualityTier: "excellent",
			PriceTier:   "premium",
			Confidence:  "High",
			ScoredAt:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		})
	}
	require.NoError(t, db.SaveScores(rows))

	return db
}

func londonMentions() map[string][]string {
	return map[string][]string{
		"connaught bar":    {"worlds_50_best_bars"},
		"satan s whiskers": {"top_500_bars"},
		"swift":            {"worlds_50_best_bars", "top_500_bars"},
	}
}

func TestEvaluateRanking(t *testing.T) {
	db := seedCity(t)
	e := NewEvaluator(db, nil)

	report, err := e.EvaluateRanking("london", "premium_spirits", 3, londonMentions())
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalRanked)
	assert.Equal(t, 3, report.AuthorityVenues)
	// Top 3 by fit: Connaught, Satan's Whiskers, Corner Pub. Swift sits at
	// rank 4, outside the window.
	assert.Equal(t, 2, report.AuthorityInTopK)
	assert.InDelta(t, 2.0/3.0, report.PrecisionAtK, 1e-9)
	assert.InDelta(t, 2.0/3.0, report.RecallAtK, 1e-9)
	// Authority ranks are 1, 2 and 4.
	assert.InDelta(t, 7.0/3.0, report.MeanAuthorityRank, 1e-9)
}

func TestEvaluateRankingNoScores(t *testing.T) {
	db := seedCity(t)
	e := NewEvaluator(db, nil)

	_, err := e.EvaluateRanking("atlantis", "premium_spirits", 3, londonMentions())
	assert.Error(t, err)
}

func TestEvaluateRankingKLargerThanBatch(t *testing.T) {
	db := seedCity(t)
	e := NewEvaluator(db, nil)

	report, err := e.EvaluateRanking("london", "premium_spirits", 50, londonMentions())
	require.NoError(t, err)

	assert.Equal(t, 3, report.AuthorityInTopK)
	// Precision denominator shrinks to the batch size.
	assert.InDelta(t, 3.0/5.0, report.PrecisionAtK, 1e-9)
	assert.InDelta(t, 1.0, report.RecallAtK, 1e-9)
}

func TestAnnotate(t *testing.T) {
	db := seedCity(t)
	e := NewEvaluator(db, nil)

	matched, err := e.Annotate("london", londonMentions())
	require.NoError(t, err)
	assert.Equal(t, 3, matched)

	venue, err := db.GetVenue("place-1")
	require.NoError(t, err)
	require.NotNil(t, venue)
	assert.Equal(t, []string{"worlds_50_best_bars"}, venue.AuthorityLists)

	venue, err = db.GetVenue("place-3")
	require.NoError(t, err)
	require.NotNil(t, venue)
	assert.Empty(t, venue.AuthorityLists)
}

func TestGenerateReport(t *testing.T) {
	e := NewEvaluator(nil, nil)

	out := e.GenerateReport(&Report{
		City:              "london",
		Profile:           "premium_spirits",
		TopK:              3,
		TotalRanked:       5,
		AuthorityVenues:   3,
		AuthorityInTopK:   2,
		PrecisionAtK:      0.667,
		RecallAtK:         0.667,
		MeanAuthorityRank: 2.3,
	})

	assert.Contains(t, out, "london / premium_spirits")
	assert.Contains(t, out, "Precision@3: 0.667")
	assert.Contains(t, out, "Mean Authority Rank: 2.3")
}
