package scoring

// Tier classification maps raw scalar attributes to coarse ordinal tiers.
// Absent inputs map to the lowest-confidence or unknown tier, never an error.

func VolumeTierFor(reviewCount *int) VolumeTier {
	if reviewCount == nil {
		return VolumeVeryLow
	}
	switch {
	case *reviewCount >= 5000:
		return VolumeVeryHigh
	case *reviewCount >= 1000:
		return VolumeHigh
	case *reviewCount >= 200:
		return VolumeMedium
	case *reviewCount >= 50:
		return VolumeLow
	default:
		return VolumeVeryLow
	}
}

func QualityTierFor(rating *float64) QualityTier {
	if rating == nil {
		return QualityAverage
	}
	switch {
	case *rating >= 4.5:
		return QualityExcellent
	case *rating >= 4.0:
		return QualityGood
	case *rating >= 3.5:
		return QualityAverage
	case *rating >= 3.0:
		return QualityBelowAverage
	default:
		return QualityPoor
	}
}

func PriceTierFor(priceLevel *int) PriceTier {
	if priceLevel == nil {
		return PriceUnknown
	}
	switch {
	case *priceLevel >= 3:
		return PricePremium
	case *priceLevel == 2:
		return PriceMid
	default:
		return PriceBudget
	}
}

func ClassifyTiers(v RawVenueAttributes) (VolumeTier, QualityTier, PriceTier) {
	return VolumeTierFor(v.ReviewCount), QualityTierFor(v.Rating), PriceTierFor(v.PriceLevel)
}
