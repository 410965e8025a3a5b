package models

import (
	"time"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
)

// Venue is the persisted form of a fetched venue: raw attributes only,
// never derived scores. Scores live in VenueScore rows keyed by profile.
type Venue struct {
	PlaceID          string
	Name             string
	City             string
	Address          string
	Latitude         float64
	Longitude        float64
	Categories       []string
	PrimaryCategory  string
	Rating           *float64
	ReviewCount      *int
	PriceLevel       *int
	ServesCocktails  *bool
	ServesWine       *bool
	ServesBeer       *bool
	GoodForGroups    *bool
	Reservable       *bool
	ServesDessert    *bool
	EditorialSummary string
	AuthorityLists   []string
	FetchedAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// VenueScore is one (venue, profile) scoring row. Re-scoring under the same
// profile replaces the row; other profiles' rows are untouched.
type VenueScore struct {
	PlaceID   string
	Profile   string
	FitScore  float64
	Rank      int
	Rationale string

	VScore         float64
	RScore         float64
	MScore         float64
	TypeScore      float64
	PriceScore     float64
	AttributeScore float64
	KeywordScore   float64
	ThemeScore     *float64

	VolumeTier  string
	QualityTier string
	PriceTier   string

	Confidence        string
	FreshnessAgeDays  int
	MissingAttributes bool

	ScoredAt time.Time
}

// ThemeRow is a stored controlled-label extraction for a venue.
type ThemeRow struct {
	PlaceID  string
	Label    string
	Presence string
	Quote    string
}

// DiscoveryRun records one text-search pass of the pipeline for audit.
type DiscoveryRun struct {
	ID          string
	City        string
	CategorySet string
	Query       string
	Results     int
	NewVenues   int
	RanAt       time.Time
}

// CitySummary is an aggregate over a city's scored venues for one profile.
type CitySummary struct {
	City         string
	Profile      string
	VenueCount   int
	MeanFit      float64
	MaxFit       float64
	HighConf     int
	LastScoredAt time.Time
}

func VenueFromRaw(raw scoring.RawVenueAttributes) Venue {
	return Venue{
		PlaceID:          raw.PlaceID,
		Name:             raw.Name,
		City:             raw.City,
		Address:          raw.Address,
		Latitude:         raw.Latitude,
		Longitude:        raw.Longitude,
		Categories:       raw.Categories,
		PrimaryCategory:  raw.PrimaryCategory,
		Rating:           raw.Rating,
		ReviewCount:      raw.ReviewCount,
		PriceLevel:       raw.PriceLevel,
		ServesCocktails:  raw.ServesCocktails,
		ServesWine:       raw.ServesWine,
		ServesBeer:       raw.ServesBeer,
		GoodForGroups:    raw.GoodForGroups,
		Reservable:       raw.Reservable,
		ServesDessert:    raw.ServesDessert,
		EditorialSummary: raw.EditorialSummary,
		FetchedAt:        raw.FetchedAt,
	}
}

func (v Venue) ToRaw() scoring.RawVenueAttributes {
	return scoring.RawVenueAttributes{
		PlaceID:          v.PlaceID,
		Name:             v.Name,
		City:             v.City,
		Address:          v.Address,
		Latitude:         v.Latitude,
		Longitude:        v.Longitude,
		Categories:       v.Categories,
		PrimaryCategory:  v.PrimaryCategory,
		Rating:           v.Rating,
		ReviewCount:      v.ReviewCount,
		PriceLevel:       v.PriceLevel,
		ServesCocktails:  v.ServesCocktails,
		ServesWine:       v.ServesWine,
		ServesBeer:       v.ServesBeer,
		GoodForGroups:    v.GoodForGroups,
		Reservable:       v.Reservable,
		ServesDessert:    v.ServesDessert,
		EditorialSummary: v.EditorialSummary,
		FetchedAt:        v.FetchedAt,
	}
}

func ScoreFromRecord(rec scoring.VenueScoreRecord) VenueScore {
	b := rec.Breakdown
	return VenueScore{
		PlaceID:           rec.PlaceID,
		Profile:           rec.Profile,
		FitScore:          rec.FitScore,
		Rank:              rec.Rank,
		Rationale:         rec.Rationale,
		VScore:            b.VScore,
		RScore:            b.RScore,
		MScore:            b.MScore,
		TypeScore:         b.TypeScore,
		PriceScore:        b.PriceScore,
		AttributeScore:    b.AttributeScore,
		KeywordScore:      b.KeywordScore,
		ThemeScore:        b.ThemeScore,
		VolumeTier:        string(b.VolumeTier),
		QualityTier:       string(b.QualityTier),
		PriceTier:         string(b.PriceTier),
		Confidence:        string(b.Confidence),
		FreshnessAgeDays:  b.FreshnessAgeDays,
		MissingAttributes: b.MissingAttributes,
		ScoredAt:          rec.ScoredAt,
	}
}

// ToRecord rebuilds an engine record from a stored score row plus its venue.
func (s VenueScore) ToRecord(v Venue) scoring.VenueScoreRecord {
	return scoring.VenueScoreRecord{
		PlaceID:   s.PlaceID,
		Name:      v.Name,
		City:      v.City,
		Address:   v.Address,
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		Breakdown: scoring.ScoreBreakdown{
			VScore:            s.VScore,
			RScore:            s.RScore,
			MScore:            s.MScore,
			TypeScore:         s.TypeScore,
			PriceScore:        s.PriceScore,
			AttributeScore:    s.AttributeScore,
			KeywordScore:      s.KeywordScore,
			ThemeScore:        s.ThemeScore,
			VolumeTier:        scoring.VolumeTier(s.VolumeTier),
			QualityTier:       scoring.QualityTier(s.QualityTier),
			PriceTier:         scoring.PriceTier(s.PriceTier),
			Confidence:        scoring.ConfidenceLabel(s.Confidence),
			FreshnessAgeDays:  s.FreshnessAgeDays,
			MissingAttributes: s.MissingAttributes,
		},
		FitScore:  s.FitScore,
		Rationale: s.Rationale,
		Profile:   s.Profile,
		Rank:      s.Rank,
		ScoredAt:  s.ScoredAt,
	}
}

func ThemesFromExtractions(placeID string, themes []scoring.ThemeExtraction) []ThemeRow {
	rows := make([]ThemeRow, 0, len(themes))
	for _, t := range themes {
		rows = append(rows, ThemeRow{
			PlaceID:  placeID,
			Label:    string(t.Label),
			Presence: string(t.Presence),
			Quote:    t.SupportingQuote,
		})
	}
	return rows
}

func (t ThemeRow) ToExtraction() scoring.ThemeExtraction {
	return scoring.ThemeExtraction{
		Label:           scoring.ThemeLabel(t.Label),
		Presence:        scoring.ThemePresence(t.Presence),
		SupportingQuote: t.Quote,
	}
}
