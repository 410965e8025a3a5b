package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/metrics"
	"github.com/ArunBNiah/venue-intel/internal/scoring"
	"github.com/ArunBNiah/venue-intel/internal/storage/models"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

// Fetcher is the discovery collaborator. Implemented by the Places client.
type Fetcher interface {
	SearchText(ctx context.Context, query, city string) ([]scoring.RawVenueAttributes, error)
	Details(ctx context.Context, placeID, city string) (scoring.RawVenueAttributes, error)
}

// ThemeExtractor is the optional review-enrichment collaborator.
type ThemeExtractor interface {
	ExtractThemes(ctx context.Context, venueName string, reviews []string) ([]scoring.ThemeExtraction, error)
}

// Event is a progress update emitted while a run executes. Handlers stream
// these to clients over websockets.
type Event struct {
	Stage   string `json:"stage"`
	City    string `json:"city"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// RunResult summarises one discovery-and-score pass over a city.
type RunResult struct {
	City          string  `json:"city"`
	Profile       string  `json:"profile"`
	Queries       int     `json:"queries"`
	Discovered    int     `json:"discovered"`
	NewVenues     int     `json:"new_venues"`
	BelowFloor    int     `json:"below_floor"`
	Scored        int     `json:"scored"`
	EstimatedCost float64 `json:"estimated_cost_usd"`
}

// querySets maps a category set name to its discovery query templates.
var querySets = map[string][]string{
	"bars": {
		"best cocktail bars in %s",
		"wine bars in %s",
		"whisky bars in %s",
	},
	"restaurants": {
		"fine dining restaurants in %s",
		"upscale restaurants in %s",
	},
	"hotels": {
		"hotel bars in %s",
		"boutique hotels with bars in %s",
	},
}

type Runner struct {
	db        *sqlite.Client
	fetcher   Fetcher
	extractor ThemeExtractor
	scorer    *scoring.Scorer
	profiles  *scoring.Registry

	categorySets   []string
	minReviewFloor int
	searchCost     float64

	// OnEvent receives progress updates when set. It must not block.
	OnEvent func(Event)
}

func NewRunner(db *sqlite.Client, fetcher Fetcher, extractor ThemeExtractor, scorer *scoring.Scorer, profiles *scoring.Registry, categorySets []string, minReviewFloor int) *Runner {
	if len(categorySets) == 0 {
		categorySets = []string{"bars", "restaurants"}
	}
	return &Runner{
		db:             db,
		fetcher:        fetcher,
		extractor:      extractor,
		scorer:         scorer,
		profiles:       profiles,
		categorySets:   categorySets,
		minReviewFloor: minReviewFloor,
		searchCost:     0.032,
	}
}

// Run discovers venues for a city, persists the new ones, and re-scores the
// whole city under the given profile. Scoring always covers every stored
// venue so batch percentiles stay consistent.
func (r *Runner) Run(ctx context.Context, city, profileName string) (*RunResult, error) {
	profile, ok := r.profiles.Get(profileName)
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", profileName)
	}

	logger.Info("Pipeline run started",
		zap.String("city", city),
		zap.String("profile", profileName),
	)

	result := &RunResult{City: city, Profile: profileName}

	known, err := r.db.KnownPlaceIDs(city)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load known venues: %w", err)
	}

	discovered, err := r.discover(ctx, city, known, result)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := r.persist(ctx, city, discovered, result); err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := r.score(ctx, city, profile, result); err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.PipelineRuns.WithLabelValues("success").Inc()
	metrics.PlacesCost.Add(result.EstimatedCost)

	r.emit(Event{Stage: "done", City: city, Message: "pipeline run complete", Count: result.Scored})
	logger.Info("Pipeline run finished",
		zap.String("city", city),
		zap.Int("discovered", result.Discovered),
		zap.Int("new_venues", result.NewVenues),
		zap.Int("scored", result.Scored),
	)

	return result, nil
}

func (r *Runner) discover(ctx context.Context, city string, known map[string]bool, result *RunResult) ([]scoring.RawVenueAttributes, error) {
	seen := make(map[string]bool, len(known))
	var discovered []scoring.RawVenueAttributes

	for _, set := range r.categorySets {
		templates, ok := querySets[set]
		if !ok {
			logger.Warn("Unknown category set skipped", zap.String("set", set))
			continue
		}

		for _, tmpl := range templates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			query := fmt.Sprintf(tmpl, city)
			r.emit(Event{Stage: "discover", City: city, Message: query})

			venues, err := r.fetcher.SearchText(ctx, query, city)
			if err != nil {
				metrics.PlacesRequests.WithLabelValues("search", "error").Inc()
				return nil, fmt.Errorf("discovery query failed: %w", err)
			}
			metrics.PlacesRequests.WithLabelValues("search", "ok").Inc()
			result.Queries++
			result.EstimatedCost += r.searchCost

			newHere := 0
			for _, v := range venues {
				if seen[v.PlaceID] {
					continue
				}
				seen[v.PlaceID] = true
				result.Discovered++
				if !known[v.PlaceID] {
					newHere++
					discovered = append(discovered, v)
				}
			}
			result.NewVenues += newHere

			run := models.DiscoveryRun{
				ID:          uuid.New().String(),
				City:        city,
				CategorySet: set,
				Query:       query,
				Results:     len(venues),
				NewVenues:   newHere,
				RanAt:       time.Now(),
			}
			if err := r.db.LogDiscoveryRun(&run); err != nil {
				logger.Warn("Failed to log discovery run", zap.Error(err))
			}
		}
	}

	metrics.VenuesDiscovered.WithLabelValues(city).Add(float64(result.NewVenues))
	return discovered, nil
}

func (r *Runner) persist(ctx context.Context, city string, discovered []scoring.RawVenueAttributes, result *RunResult) error {
	for _, raw := range discovered {
		if raw.ReviewCount != nil && *raw.ReviewCount < r.minReviewFloor {
			result.BelowFloor++
			continue
		}

		venue := models.VenueFromRaw(raw)
		if err := r.db.UpsertVenue(&venue); err != nil {
			return fmt.Errorf("failed to store venue %s: %w", raw.PlaceID, err)
		}

		if r.extractor != nil && raw.EditorialSummary != "" {
			themes, err := r.extractor.ExtractThemes(ctx, raw.Name, []string{raw.EditorialSummary})
			if err != nil {
				metrics.ThemeExtractions.WithLabelValues("error").Inc()
				continue
			}
			metrics.ThemeExtractions.WithLabelValues("ok").Inc()
			if err := r.db.SaveThemes(models.ThemesFromExtractions(raw.PlaceID, themes)); err != nil {
				logger.Warn("Failed to store themes", zap.String("place_id", raw.PlaceID), zap.Error(err))
			}
		}
	}

	r.emit(Event{Stage: "persist", City: city, Message: "venues stored", Count: len(discovered) - result.BelowFloor})
	return nil
}

func (r *Runner) score(ctx context.Context, city string, profile scoring.Profile, result *RunResult) error {
	venues, err := r.db.VenuesByCity(city)
	if err != nil {
		return fmt.Errorf("failed to load city venues: %w", err)
	}
	if len(venues) == 0 {
		return nil
	}

	themeRows, err := r.db.ThemesByCity(city)
	if err != nil {
		return fmt.Errorf("failed to load themes: %w", err)
	}
	themes := make(map[string][]scoring.ThemeExtraction, len(themeRows))
	for placeID, rows := range themeRows {
		for _, row := range rows {
			themes[placeID] = append(themes[placeID], row.ToExtraction())
		}
	}

	raws := make([]scoring.RawVenueAttributes, 0, len(venues))
	for _, v := range venues {
		raws = append(raws, v.ToRaw())
	}

	start := time.Now()
	records, err := r.scorer.ScoreBatch(raws, themes, profile)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}
	metrics.ScoringDuration.WithLabelValues(profile.Name).Observe(time.Since(start).Seconds())

	rows := make([]models.VenueScore, 0, len(records))
	for _, rec := range records {
		rows = append(rows, models.ScoreFromRecord(rec))
		metrics.VenuesScored.WithLabelValues(profile.Name, city).Inc()
		metrics.FitScoreDistribution.WithLabelValues(profile.Name).Observe(rec.FitScore)
		metrics.ConfidenceLabels.WithLabelValues(string(rec.Breakdown.Confidence)).Inc()
	}

	if err := r.db.SaveScores(rows); err != nil {
		return fmt.Errorf("failed to save scores: %w", err)
	}

	result.Scored = len(records)
	r.emit(Event{Stage: "score", City: city, Message: "city scored", Count: len(records)})
	return nil
}

// RefreshCity re-fetches details for every stored venue in a city with a
// small worker pool, then re-scores under the given profile.
func (r *Runner) RefreshCity(ctx context.Context, city, profileName string, workers int) (*RunResult, error) {
	profile, ok := r.profiles.Get(profileName)
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", profileName)
	}
	if workers <= 0 {
		workers = 4
	}

	venues, err := r.db.VenuesByCity(city)
	if err != nil {
		return nil, fmt.Errorf("failed to load city venues: %w", err)
	}

	result := &RunResult{City: city, Profile: profileName}

	jobs := make(chan models.Venue)
	refreshed := make(chan scoring.RawVenueAttributes, len(venues))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range jobs {
				raw, err := r.fetcher.Details(ctx, v.PlaceID, city)
				if err != nil {
					metrics.PlacesRequests.WithLabelValues("details", "error").Inc()
					logger.Warn("Details refresh failed, keeping stored attributes",
						zap.String("place_id", v.PlaceID),
						zap.Error(err),
					)
					continue
				}
				metrics.PlacesRequests.WithLabelValues("details", "ok").Inc()
				refreshed <- raw
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, v := range venues {
			select {
			case <-ctx.Done():
				return
			case jobs <- v:
			}
		}
	}()

	wg.Wait()
	close(refreshed)

	for raw := range refreshed {
		venue := models.VenueFromRaw(raw)
		if err := r.db.UpsertVenue(&venue); err != nil {
			return nil, fmt.Errorf("failed to store refreshed venue %s: %w", raw.PlaceID, err)
		}
		result.Discovered++
		result.EstimatedCost += 0.020
	}

	if err := r.score(ctx, city, profile, result); err != nil {
		return nil, err
	}

	r.emit(Event{Stage: "done", City: city, Message: "refresh complete", Count: result.Scored})
	return result, nil
}

// WithEvents returns a copy of the runner that emits progress to fn. The
// copy shares every collaborator, so per-connection event sinks never race
// on the shared runner.
func (r *Runner) WithEvents(fn func(Event)) *Runner {
	clone := *r
	clone.OnEvent = fn
	return &clone
}

func (r *Runner) emit(e Event) {
	if r.OnEvent != nil {
		r.OnEvent(e)
	}
}
