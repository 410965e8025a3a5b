package scoring

import (
	"math"
	"strings"
)

// CombineRelevance folds the M sub-scores into one signal under the
// profile's component weights. The type score enters on its 0..1
// normalisation. When no theme extraction exists, the remaining weights are
// renormalised so they still sum to 1; the two branches share one weighted
// sum so the arithmetic stays auditable.
func CombineRelevance(p Profile, typeScore, priceScore, attributeScore, keywordScore float64, themeScore *float64) float64 {
	typeNorm := (typeScore + 1.0) / 2.0

	if themeScore != nil {
		return clamp01(weightedSum(
			[]float64{p.WType, p.WPrice, p.WAttribute, p.WKeyword, p.WTheme},
			[]float64{typeNorm, priceScore, attributeScore, keywordScore, *themeScore},
		))
	}

	total := p.WType + p.WPrice + p.WAttribute + p.WKeyword
	if total <= 0 {
		return 0.0
	}
	return clamp01(weightedSum(
		[]float64{p.WType / total, p.WPrice / total, p.WAttribute / total, p.WKeyword / total},
		[]float64{typeNorm, priceScore, attributeScore, keywordScore},
	))
}

func weightedSum(weights, values []float64) float64 {
	sum := 0.0
	for i := range weights {
		sum += weights[i] * values[i]
	}
	return sum
}

// FitScore is the final 0-100 score under a profile's top-level weights,
// rounded to one decimal.
func FitScore(p Profile, b ScoreBreakdown) float64 {
	combined := p.WVolume*b.VScore + p.WQuality*b.RScore + p.WRelevance*b.MScore
	return round1(clamp(combined, 0.0, 1.0) * 100.0)
}

type contribution struct {
	phrase string
	value  float64
}

// Rationale renders a short sentence naming the top one or two weighted
// contributors. Selection and wording are deterministic: identical inputs
// always produce identical text.
func Rationale(p Profile, b ScoreBreakdown) string {
	mWeights := effectiveRelevanceWeights(p, b.ThemeScore != nil)

	contribs := []contribution{
		{volumePhrase(b.VScore), p.WVolume * b.VScore},
		{qualityPhrase(b.RScore), p.WQuality * b.RScore},
		{typePhrase(b.TypeScore), p.WRelevance * mWeights[0] * (b.TypeScore + 1.0) / 2.0},
		{pricePhrase(b.PriceScore), p.WRelevance * mWeights[1] * b.PriceScore},
		{attributePhrase(b.AttributeScore), p.WRelevance * mWeights[2] * b.AttributeScore},
		{keywordPhrase(b.KeywordScore), p.WRelevance * mWeights[3] * b.KeywordScore},
	}
	if b.ThemeScore != nil {
		contribs = append(contribs, contribution{themePhrase(*b.ThemeScore), p.WRelevance * mWeights[4] * *b.ThemeScore})
	}

	// Stable selection: ties resolve to the earlier entry.
	first, second := -1, -1
	for i, c := range contribs {
		if c.phrase == "" {
			continue
		}
		if first == -1 || c.value > contribs[first].value {
			second = first
			first = i
		} else if second == -1 || c.value > contribs[second].value {
			second = i
		}
	}

	if first == -1 {
		return "Limited signals available for assessment."
	}

	parts := []string{contribs[first].phrase}
	if second != -1 && first != second {
		parts = append(parts, contribs[second].phrase)
	}

	sentence := strings.Join(parts, " and ")
	sentence = strings.ToUpper(sentence[:1]) + sentence[1:] + "."
	if b.Confidence == ConfidenceLow {
		sentence += " Low data confidence."
	}
	return sentence
}

func effectiveRelevanceWeights(p Profile, hasTheme bool) [5]float64 {
	if hasTheme {
		return [5]float64{p.WType, p.WPrice, p.WAttribute, p.WKeyword, p.WTheme}
	}
	total := p.WType + p.WPrice + p.WAttribute + p.WKeyword
	if total <= 0 {
		return [5]float64{}
	}
	return [5]float64{p.WType / total, p.WPrice / total, p.WAttribute / total, p.WKeyword / total, 0}
}

func volumePhrase(v float64) string {
	switch {
	case v >= 0.7:
		return "high review volume in market"
	case v >= 0.4:
		return "moderate review volume"
	default:
		return ""
	}
}

func qualityPhrase(r float64) string {
	switch {
	case r >= 0.85:
		return "excellent guest ratings"
	case r >= 0.7:
		return "strong guest ratings"
	default:
		return ""
	}
}

func typePhrase(typeScore float64) string {
	switch {
	case typeScore >= 0.7:
		return "strong venue-type fit"
	case typeScore >= 0.3:
		return "good venue-type fit"
	case typeScore < 0:
		return "venue type misaligned with brand positioning"
	default:
		return ""
	}
}

func pricePhrase(p float64) string {
	if p >= 0.7 {
		return "high price alignment"
	}
	return ""
}

func attributePhrase(a float64) string {
	if a >= 0.6 {
		return "strong amenity signals"
	}
	return ""
}

func keywordPhrase(k float64) string {
	if k > 0.5 {
		return "positive editorial signals"
	}
	return ""
}

func themePhrase(t float64) string {
	if t >= 0.6 {
		return "favourable review themes"
	}
	return ""
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
