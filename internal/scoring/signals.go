package scoring

import (
	"math"
	"sort"
)

// PercentileTable is the read-only city-batch rank table behind the Volume
// signal. It is built once per batch from every candidate's review count;
// after that, per-venue scoring is safe to run in parallel.
type PercentileTable struct {
	logs []float64
}

func BuildPercentileTable(reviewCounts []int) *PercentileTable {
	logs := make([]float64, 0, len(reviewCounts))
	for _, c := range reviewCounts {
		if c > 0 {
			logs = append(logs, math.Log1p(float64(c)))
		}
	}
	sort.Float64s(logs)
	return &PercentileTable{logs: logs}
}

// VolumeScore is the percentile rank of the log-scaled review count within
// the batch. Venues with no review count score 0 and are flagged
// low-confidence downstream.
func (t *PercentileTable) VolumeScore(reviewCount *int) float64 {
	if reviewCount == nil || *reviewCount <= 0 || len(t.logs) == 0 {
		return 0.0
	}

	v := math.Log1p(float64(*reviewCount))
	below := sort.SearchFloat64s(t.logs, v)
	above := sort.Search(len(t.logs), func(i int) bool { return t.logs[i] > v })
	ties := above - below

	// Percentile rank with half-weight for ties keeps the score stable for
	// duplicate counts.
	return clamp01((float64(below) + 0.5*float64(ties)) / float64(len(t.logs)))
}

func (t *PercentileTable) Size() int {
	return len(t.logs)
}

// QualityScore dampens the star rating by review-count confidence before
// normalising by the maximum rating of 5.
func QualityScore(rating *float64, reviewCount *int, confidenceThreshold int) float64 {
	if rating == nil {
		return 0.0
	}
	if confidenceThreshold <= 0 {
		confidenceThreshold = 50
	}

	count := 0
	if reviewCount != nil {
		count = *reviewCount
	}
	confidence := math.Min(1.0, float64(count)/float64(confidenceThreshold))

	return clamp01(*rating * confidence / 5.0)
}
