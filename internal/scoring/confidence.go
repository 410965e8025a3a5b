package scoring

// FreshnessCapDays is the data age beyond which confidence is capped at
// medium regardless of volume.
const FreshnessCapDays = 90

// ConfidenceFor derives a confidence label from sample size and data age.
// It is a priority cascade, not independent votes: low volume is a hard
// floor, and staleness can only lower confidence, never raise it. The label
// never depends on the score values themselves.
func ConfidenceFor(volumeTier VolumeTier, freshnessAgeDays int) ConfidenceLabel {
	if volumeTier == VolumeVeryLow || volumeTier == VolumeLow {
		return ConfidenceLow
	}

	derived := ConfidenceHigh
	if volumeTier == VolumeMedium {
		derived = ConfidenceMedium
	}

	if freshnessAgeDays > FreshnessCapDays && derived == ConfidenceHigh {
		return ConfidenceMedium
	}
	return derived
}
