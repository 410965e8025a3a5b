package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
)

func TestWriteCSV(t *testing.T) {
	records := []scoring.VenueScoreRecord{
		{
			PlaceID: "p1",
			Name:    "The Vault",
			City:    "london",
			Address: "1 Test Lane, London",
			Breakdown: scoring.ScoreBreakdown{
				VScore:      0.9,
				RScore:      0.92,
				MScore:      0.813,
				VolumeTier:  scoring.VolumeHigh,
				QualityTier: scoring.QualityExcellent,
				PriceTier:   scoring.PricePremium,
				Confidence:  scoring.ConfidenceHigh,
			},
			FitScore:  86.2,
			Rationale: "Strong venue-type fit and high review volume in market.",
			Profile:   "premium_spirits",
			Rank:      1,
			ScoredAt:  time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			PlaceID:  "p2",
			Name:     "Comma, Bar \"quoted\"",
			City:     "london",
			FitScore: 42.0,
			Rank:     2,
			Profile:  "premium_spirits",
			ScoredAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "rank", rows[0][0])
	assert.Equal(t, "fit_score", rows[0][4])

	first := rows[1]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "The Vault", first[1])
	assert.Equal(t, "86.2", first[4])
	assert.Equal(t, "high", first[5])
	assert.Equal(t, "0.900", first[10])
	assert.Equal(t, "premium_spirits", first[13])
	assert.Equal(t, "2026-03-15T12:00:00Z", first[15])

	// Embedded commas and quotes survive the round trip.
	assert.Equal(t, "Comma, Bar \"quoted\"", rows[2][1])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
