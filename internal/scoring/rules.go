package scoring

import "strings"

// TypeRule pairs a venue category with its relevance score on a -1..1 scale.
// Rules are evaluated top-down; new categories are added by inserting rows.
type TypeRule struct {
	Category string
	Score    float64
}

type AttributeWeight struct {
	Name   string
	Weight float64
	Value  func(RawVenueAttributes) *bool
}

// Rules holds the immutable lookup tables behind the Relevance signal. A
// single Rules value is loaded once per process and passed explicitly into
// calculators; brand profiles only change how the sub-scores are weighted.
type Rules struct {
	TypeRules        []TypeRule
	PriceScores      map[int]float64
	PriceUnknown     float64
	AttributeWeights []AttributeWeight
	AttributeUnknown float64
	PositiveKeywords map[string]float64
	NegativeKeywords map[string]float64
	ThemeWeights     map[ThemeLabel]float64
}

func DefaultRules() *Rules {
	return &Rules{
		TypeRules: []TypeRule{
			// Strong positive
			{"cocktail_bar", 1.0},
			{"wine_bar", 1.0},
			// Positive
			{"bar", 0.7},
			{"lounge", 0.7},
			// Neutral positive
			{"fine_dining_restaurant", 0.6},
			{"french_restaurant", 0.5},
			{"italian_restaurant", 0.5},
			{"japanese_restaurant", 0.5},
			{"steak_house", 0.5},
			{"restaurant", 0.4},
			{"boutique_hotel", 0.4},
			// Neutral
			{"hotel", 0.3},
			{"resort_hotel", 0.3},
			{"british_restaurant", 0.3},
			// Neutral negative
			{"pub", 0.2},
			{"izakaya", 0.2},
			{"cafe", 0.1},
			// Negative
			{"night_club", -0.2},
			{"sports_bar", -0.2},
			{"karaoke", -0.3},
			{"liquor_store", -0.5},
			// Strong negative
			{"fast_food_restaurant", -1.0},
			{"convenience_store", -1.0},
		},
		PriceScores: map[int]float64{
			4: 1.0,
			3: 0.8,
			2: 0.4,
			1: 0.1,
			0: 0.0,
		},
		// Absent price is a cautious neutral, not a negative signal.
		PriceUnknown: 0.3,
		AttributeWeights: []AttributeWeight{
			{"serves_cocktails", 0.4, func(v RawVenueAttributes) *bool { return v.ServesCocktails }},
			{"serves_wine", 0.2, func(v RawVenueAttributes) *bool { return v.ServesWine }},
			{"serves_beer", 0.1, func(v RawVenueAttributes) *bool { return v.ServesBeer }},
			{"good_for_groups", 0.1, func(v RawVenueAttributes) *bool { return v.GoodForGroups }},
			{"reservable", 0.1, func(v RawVenueAttributes) *bool { return v.Reservable }},
			{"serves_dessert", 0.05, func(v RawVenueAttributes) *bool { return v.ServesDessert }},
		},
		AttributeUnknown: 0.3,
		PositiveKeywords: map[string]float64{
			"cocktail":      0.15,
			"cocktails":     0.15,
			"mixology":      0.2,
			"whisky":        0.2,
			"whiskey":       0.2,
			"gin":           0.15,
			"spirits":       0.15,
			"premium":       0.1,
			"upscale":       0.1,
			"sophisticated": 0.1,
			"tasting":       0.15,
			"sommelier":     0.15,
			"craft":         0.1,
		},
		NegativeKeywords: map[string]float64{
			"cheap":      -0.2,
			"budget":     -0.15,
			"shots":      -0.2,
			"student":    -0.25,
			"dive":       -0.2,
			"sports bar": -0.15,
			"karaoke":    -0.15,
		},
		ThemeWeights: map[ThemeLabel]float64{
			ThemeCocktailFocus:     1.0,
			ThemeSpiritsDepth:      1.0,
			ThemeUpscaleAtmosphere: 0.8,
			ThemeServiceQuality:    0.5,
			ThemePriceValueFocus:   -1.0,
		},
	}
}

// TypeScore checks the primary category against the ordered rule table first,
// then falls back to the strongest match across the full category list.
// Unmatched categories are neutral.
func (r *Rules) TypeScore(primary string, categories []string) float64 {
	if primary != "" {
		for _, rule := range r.TypeRules {
			if rule.Category == primary {
				return rule.Score
			}
		}
	}

	best := 0.0
	for _, rule := range r.TypeRules {
		for _, cat := range categories {
			if rule.Category == cat && abs(rule.Score) > abs(best) {
				best = rule.Score
			}
		}
	}
	return best
}

func (r *Rules) PriceScore(priceLevel *int) float64 {
	if priceLevel == nil {
		return r.PriceUnknown
	}
	if score, ok := r.PriceScores[*priceLevel]; ok {
		return score
	}
	return r.PriceUnknown
}

// AttributeScore sums fixed weights for each true amenity flag, normalised by
// the maximum attainable sum. When every flag is unknown (not merely false)
// the score is a neutral default and the record is flagged for downstream
// confidence display.
func (r *Rules) AttributeScore(v RawVenueAttributes) (score float64, allUnknown bool) {
	sum := 0.0
	max := 0.0
	allUnknown = true

	for _, aw := range r.AttributeWeights {
		max += aw.Weight
		val := aw.Value(v)
		if val == nil {
			continue
		}
		allUnknown = false
		if *val {
			sum += aw.Weight
		}
	}

	if allUnknown {
		return r.AttributeUnknown, true
	}
	return clamp01(sum / max), false
}

// KeywordScore scans the editorial summary with case-insensitive substring
// matches against the positive and negative tables, clamps the sum to [-1,1]
// and rescales to [0,1]. An absent summary is weak evidence in itself, so it
// scores 0 rather than the cautious neutral used for absent price.
func (r *Rules) KeywordScore(editorialSummary string) float64 {
	if editorialSummary == "" {
		return 0.0
	}

	text := strings.ToLower(editorialSummary)
	sum := 0.0
	for kw, w := range r.PositiveKeywords {
		if strings.Contains(text, kw) {
			sum += w
		}
	}
	for kw, w := range r.NegativeKeywords {
		if strings.Contains(text, kw) {
			sum += w
		}
	}

	clamped := clamp(sum, -1.0, 1.0)
	return (clamped + 1.0) / 2.0
}

// ThemeScore sums table weights for each present label and rescales using the
// theoretical min/max of the weight table, so the mapping does not depend on
// how many labels were evaluated. Returns nil when no extraction exists.
func (r *Rules) ThemeScore(themes []ThemeExtraction) *float64 {
	if len(themes) == 0 {
		return nil
	}

	min, max := 0.0, 0.0
	for _, w := range r.ThemeWeights {
		if w > 0 {
			max += w
		} else {
			min += w
		}
	}

	sum := 0.0
	for _, t := range themes {
		if t.Presence != ThemePresent {
			continue
		}
		sum += r.ThemeWeights[t.Label]
	}

	if max == min {
		zero := 0.0
		return &zero
	}
	score := clamp01((sum - min) / (max - min))
	return &score
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

func clamp01(f float64) float64 {
	return clamp(f, 0.0, 1.0)
}
