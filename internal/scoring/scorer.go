package scoring

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

// Scorer runs the full pipeline for a city batch: tier classification,
// signal calculation, confidence labelling and fit combination. All of its
// calculators are pure functions; after the batch percentile table is built,
// per-venue scoring has no shared mutable state.
type Scorer struct {
	rules               *Rules
	confidenceThreshold int
	now                 func() time.Time
}

func NewScorer(rules *Rules, confidenceThreshold int) *Scorer {
	if rules == nil {
		rules = DefaultRules()
	}
	if confidenceThreshold <= 0 {
		confidenceThreshold = 50
	}
	return &Scorer{
		rules:               rules,
		confidenceThreshold: confidenceThreshold,
		now:                 time.Now,
	}
}

// ScoreBatch scores every venue in a city batch under one profile and
// returns the records sorted by fit score descending with ranks assigned.
// Theme extractions are keyed by place ID and are optional per venue.
func (s *Scorer) ScoreBatch(venues []RawVenueAttributes, themes map[string][]ThemeExtraction, profile Profile) ([]VenueScoreRecord, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	counts := make([]int, 0, len(venues))
	for _, v := range venues {
		if v.ReviewCount != nil {
			counts = append(counts, *v.ReviewCount)
		}
	}
	table := BuildPercentileTable(counts)

	records := make([]VenueScoreRecord, 0, len(venues))
	for _, v := range venues {
		records = append(records, s.scoreOne(v, table, themes[v.PlaceID], profile))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FitScore > records[j].FitScore
	})
	for i := range records {
		records[i].Rank = i + 1
	}

	logger.Info("Batch scored",
		zap.String("profile", profile.Name),
		zap.Int("venues", len(records)),
	)

	return records, nil
}

// ScoreVenue scores a single venue against an existing percentile table.
func (s *Scorer) ScoreVenue(v RawVenueAttributes, table *PercentileTable, themes []ThemeExtraction, profile Profile) (VenueScoreRecord, error) {
	if err := profile.Validate(); err != nil {
		return VenueScoreRecord{}, err
	}
	return s.scoreOne(v, table, themes, profile), nil
}

func (s *Scorer) scoreOne(v RawVenueAttributes, table *PercentileTable, themes []ThemeExtraction, profile Profile) VenueScoreRecord {
	now := s.now()

	volumeTier, qualityTier, priceTier := ClassifyTiers(v)

	vScore := round3(table.VolumeScore(v.ReviewCount))
	rScore := round3(QualityScore(v.Rating, v.ReviewCount, s.confidenceThreshold))

	typeScore := round3(s.rules.TypeScore(v.PrimaryCategory, v.Categories))
	priceScore := round3(s.rules.PriceScore(v.PriceLevel))
	attributeScore, missingAttrs := s.rules.AttributeScore(v)
	attributeScore = round3(attributeScore)
	keywordScore := round3(s.rules.KeywordScore(v.EditorialSummary))
	themeScore := s.rules.ThemeScore(themes)
	if themeScore != nil {
		rounded := round3(*themeScore)
		themeScore = &rounded
	}

	mScore := round3(CombineRelevance(profile, typeScore, priceScore, attributeScore, keywordScore, themeScore))

	ageDays := freshnessAgeDays(v.FetchedAt, now)

	breakdown := ScoreBreakdown{
		VScore:            vScore,
		RScore:            rScore,
		MScore:            mScore,
		TypeScore:         typeScore,
		PriceScore:        priceScore,
		AttributeScore:    attributeScore,
		KeywordScore:      keywordScore,
		ThemeScore:        themeScore,
		VolumeTier:        volumeTier,
		QualityTier:       qualityTier,
		PriceTier:         priceTier,
		Confidence:        ConfidenceFor(volumeTier, ageDays),
		FreshnessAgeDays:  ageDays,
		MissingAttributes: missingAttrs,
	}

	return VenueScoreRecord{
		PlaceID:   v.PlaceID,
		Name:      v.Name,
		City:      v.City,
		Address:   v.Address,
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		Breakdown: breakdown,
		FitScore:  FitScore(profile, breakdown),
		Rationale: Rationale(profile, breakdown),
		Profile:   profile.Name,
		ScoredAt:  now,
	}
}

// Recalculate reapplies a different profile to an existing record's stored
// sub-scores without touching raw attributes. Type, price, attribute and
// keyword sub-scores are profile-independent and reused verbatim; only the
// weighted combination changes. A new record is returned, never a mutation.
func (s *Scorer) Recalculate(rec VenueScoreRecord, profile Profile) (VenueScoreRecord, error) {
	if err := profile.Validate(); err != nil {
		return VenueScoreRecord{}, fmt.Errorf("recalculation profile invalid: %w", err)
	}

	b := rec.Breakdown
	b.MScore = round3(CombineRelevance(profile, b.TypeScore, b.PriceScore, b.AttributeScore, b.KeywordScore, b.ThemeScore))
	b.Confidence = ConfidenceFor(b.VolumeTier, b.FreshnessAgeDays)

	out := rec
	out.Breakdown = b
	out.FitScore = FitScore(profile, b)
	out.Rationale = Rationale(profile, b)
	out.Profile = profile.Name
	out.Rank = 0
	out.ScoredAt = s.now()
	return out, nil
}

// RecalculateBatch re-ranks a stored city batch under a new profile.
func (s *Scorer) RecalculateBatch(records []VenueScoreRecord, profile Profile) ([]VenueScoreRecord, error) {
	out := make([]VenueScoreRecord, 0, len(records))
	for _, rec := range records {
		r, err := s.Recalculate(rec, profile)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FitScore > out[j].FitScore
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func freshnessAgeDays(fetchedAt, now time.Time) int {
	if fetchedAt.IsZero() || fetchedAt.After(now) {
		return 0
	}
	return int(now.Sub(fetchedAt).Hours() / 24)
}
