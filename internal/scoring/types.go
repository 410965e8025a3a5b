package scoring

import "time"

type VolumeTier string

const (
	VolumeVeryHigh VolumeTier = "very_high"
	VolumeHigh     VolumeTier = "high"
	VolumeMedium   VolumeTier = "medium"
	VolumeLow      VolumeTier = "low"
	VolumeVeryLow  VolumeTier = "very_low"
)

type QualityTier string

const (
	QualityExcellent    QualityTier = "excellent"
	QualityGood         QualityTier = "good"
	QualityAverage      QualityTier = "average"
	QualityBelowAverage QualityTier = "below_average"
	QualityPoor         QualityTier = "poor"
)

type PriceTier string

const (
	PricePremium PriceTier = "premium"
	PriceMid     PriceTier = "mid"
	PriceBudget  PriceTier = "budget"
	PriceUnknown PriceTier = "unknown"
)

type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "high"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceLow    ConfidenceLabel = "low"
)

type ThemeLabel string

const (
	ThemeCocktailFocus     ThemeLabel = "cocktail_focus"
	ThemeSpiritsDepth      ThemeLabel = "spirits_depth"
	ThemeUpscaleAtmosphere ThemeLabel = "upscale_atmosphere"
	ThemeServiceQuality    ThemeLabel = "service_quality"
	ThemePriceValueFocus   ThemeLabel = "price_value_focus"
)

type ThemePresence string

const (
	ThemePresent ThemePresence = "present"
	ThemeAbsent  ThemePresence = "absent"
	ThemeUnclear ThemePresence = "unclear"
)

// ThemeExtraction is a controlled-label result from the review enrichment
// collaborator. Only labels are retained, never raw review text.
type ThemeExtraction struct {
	Label           ThemeLabel    `json:"label"`
	Presence        ThemePresence `json:"presence"`
	SupportingQuote string        `json:"supporting_quote,omitempty"`
}

// RawVenueAttributes is the scoring input owned by the fetch collaborator.
// Pointer fields distinguish absent/unknown from zero/false.
type RawVenueAttributes struct {
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
	FetchedAt        time.Time
}

// ScoreBreakdown is immutable once computed for a given input+profile pair.
// TypeScore is kept on its raw -1..1 scale for explainability; the weighted
// sum uses its 0..1 normalisation. All other sub-scores are in [0,1].
type ScoreBreakdown struct {
	VScore float64 `json:"v_score"`
	RScore float64 `json:"r_score"`
	MScore float64 `json:"m_score"`

	TypeScore      float64  `json:"m_type_score"`
	PriceScore     float64  `json:"m_price_score"`
	AttributeScore float64  `json:"m_attribute_score"`
	KeywordScore   float64  `json:"m_keyword_score"`
	ThemeScore     *float64 `json:"m_theme_score,omitempty"`

	VolumeTier  VolumeTier  `json:"volume_tier"`
	QualityTier QualityTier `json:"quality_tier"`
	PriceTier   PriceTier   `json:"price_tier"`

	Confidence        ConfidenceLabel `json:"confidence"`
	FreshnessAgeDays  int             `json:"freshness_age_days"`
	MissingAttributes bool            `json:"missing_attributes"`
}

// VenueScoreRecord is the engine's output. Re-scoring always produces a new
// record rather than mutating an existing one.
type VenueScoreRecord struct {
	PlaceID   string         `json:"place_id"`
	Name      string         `json:"name"`
	City      string         `json:"city"`
	Address   string         `json:"address,omitempty"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	FitScore  float64        `json:"distribution_fit_score"`
	Rationale string         `json:"rationale"`
	Profile   string         `json:"profile"`
	Rank      int            `json:"rank,omitempty"`
	ScoredAt  time.Time      `json:"scored_at"`
}
