package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScoringDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venue_intel_scoring_duration_seconds",
			Help:    "Batch scoring duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"profile"},
	)

	VenuesScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_intel_venues_scored_total",
			Help: "Total venues scored",
		},
		[]string{"profile", "city"},
	)

	FitScoreDistribution = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venue_intel_fit_score",
			Help:    "Distribution fit scores produced",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"profile"},
	)

	ConfidenceLabels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_intel_confidence_labels_total",
			Help: "Confidence labels assigned to scored venues",
		},
		[]string{"label"},
	)

	PlacesRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_intel_places_requests_total",
			Help: "Places API requests by kind and status",
		},
		[]string{"kind", "status"},
	)

	PlacesCost = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "venue_intel_places_cost_usd",
			Help: "Estimated Places API spend in USD",
		},
	)

	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_intel_pipeline_runs_total",
			Help: "Discovery pipeline runs by status",
		},
		[]string{"status"},
	)

	VenuesDiscovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_intel_venues_discovered_total",
			Help: "New venues discovered per city",
		},
		[]string{"city"},
	)

	ThemeExtractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_intel_theme_extractions_total",
			Help: "Theme extraction attempts by outcome",
		},
		[]string{"outcome"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_intel_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_intel_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(ScoringDuration)
	prometheus.MustRegister(VenuesScored)
	prometheus.MustRegister(FitScoreDistribution)
	prometheus.MustRegister(ConfidenceLabels)
	prometheus.MustRegister(PlacesRequests)
	prometheus.MustRegister(PlacesCost)
	prometheus.MustRegister(PipelineRuns)
	prometheus.MustRegister(VenuesDiscovered)
	prometheus.MustRegister(ThemeExtractions)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
