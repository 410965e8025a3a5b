package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
)

var header = []string{
	"rank",
	"name",
	"city",
	"address",
	"fit_score",
	"confidence",
	"rationale",
	"volume_tier",
	"quality_tier",
	"price_tier",
	"v_score",
	"r_score",
	"m_score",
	"profile",
	"place_id",
	"scored_at",
}

// WriteCSV renders ranked score records as a field-sales target list. Rows
// come out in the order given, which is rank order when the input comes from
// the scorer or storage.
func WriteCSV(w io.Writer, records []scoring.VenueScoreRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.Rank),
			rec.Name,
			rec.City,
			rec.Address,
			strconv.FormatFloat(rec.FitScore, 'f', 1, 64),
			string(rec.Breakdown.Confidence),
			rec.Rationale,
			string(rec.Breakdown.VolumeTier),
			string(rec.Breakdown.QualityTier),
			string(rec.Breakdown.PriceTier),
			strconv.FormatFloat(rec.Breakdown.VScore, 'f', 3, 64),
			strconv.FormatFloat(rec.Breakdown.RScore, 'f', 3, 64),
			strconv.FormatFloat(rec.Breakdown.MScore, 'f', 3, 64),
			rec.Profile,
			rec.PlaceID,
			rec.ScoredAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", rec.PlaceID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
