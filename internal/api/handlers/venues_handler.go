package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/cache/redis"
	"github.com/ArunBNiah/venue-intel/internal/metrics"
	"github.com/ArunBNiah/venue-intel/internal/storage/models"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
	"github.com/ArunBNiah/venue-intel/pkg/utils"
)

const defaultRankingLimit = 50

type VenuesHandler struct {
	db             *sqlite.Client
	cache          *redis.Client
	rankingTTL     time.Duration
	defaultProfile string
}

// NewVenuesHandler wires the read side. cache may be nil; rankings are then
// served straight from SQLite.
func NewVenuesHandler(db *sqlite.Client, cache *redis.Client, rankingTTL time.Duration, defaultProfile string) *VenuesHandler {
	return &VenuesHandler{
		db:             db,
		cache:          cache,
		rankingTTL:     rankingTTL,
		defaultProfile: defaultProfile,
	}
}

// GetRanking serves the ranked venue list for a city under one profile.
// Optional filters: ?profile=, ?limit=, ?tier= (volume tier).
func (h *VenuesHandler) GetRanking(c *fiber.Ctx) error {
	city := c.Params("city")
	if city == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "city is required",
		})
	}

	profile := c.Query("profile", h.defaultProfile)
	tier := c.Query("tier")
	limit := c.QueryInt("limit", defaultRankingLimit)
	if limit < 1 || limit > 500 {
		limit = defaultRankingLimit
	}

	cacheKey := utils.HashString(fmt.Sprintf("%s|%s|%s|%d", city, profile, tier, limit))

	if h.cache != nil {
		var cached []models.VenueScore
		found, err := h.cache.GetRanking(c.Context(), cacheKey, &cached)
		if err == nil && found {
			metrics.CacheHits.WithLabelValues("ranking").Inc()
			return c.JSON(fiber.Map{
				"city":    city,
				"profile": profile,
				"count":   len(cached),
				"venues":  cached,
				"cached":  true,
			})
		}
		metrics.CacheMisses.WithLabelValues("ranking").Inc()
	}

	var (
		scores []models.VenueScore
		err    error
	)
	if tier != "" {
		scores, err = h.db.ScoresByVolumeTier(city, profile, tier)
		if err == nil && len(scores) > limit {
			scores = scores[:limit]
		}
	} else {
		scores, err = h.db.RankedScores(city, profile, limit)
	}
	if err != nil {
		logger.Error("Failed to load ranking", zap.String("city", city), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load ranking",
		})
	}

	if h.cache != nil && len(scores) > 0 {
		if err := h.cache.SetRanking(c.Context(), cacheKey, scores, h.rankingTTL); err != nil {
			logger.Warn("Failed to cache ranking", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"city":    city,
		"profile": profile,
		"count":   len(scores),
		"venues":  scores,
		"cached":  false,
	})
}

// GetSummary serves the city-level aggregate view.
func (h *VenuesHandler) GetSummary(c *fiber.Ctx) error {
	city := c.Params("city")
	if city == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "city is required",
		})
	}
	profile := c.Query("profile", h.defaultProfile)

	summary, err := h.db.GetCitySummary(city, profile)
	if err != nil {
		logger.Error("Failed to load city summary", zap.String("city", city), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load city summary",
		})
	}

	return c.JSON(summary)
}

// GetVenue serves one stored venue with its raw attributes.
func (h *VenuesHandler) GetVenue(c *fiber.Ctx) error {
	placeID := c.Params("place_id")
	if placeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "place_id is required",
		})
	}

	if h.cache != nil {
		var cached models.Venue
		found, err := h.cache.GetVenueDetails(c.Context(), placeID, &cached)
		if err == nil && found {
			metrics.CacheHits.WithLabelValues("venue").Inc()
			return c.JSON(cached)
		}
		metrics.CacheMisses.WithLabelValues("venue").Inc()
	}

	venue, err := h.db.GetVenue(placeID)
	if err != nil {
		logger.Error("Failed to load venue", zap.String("place_id", placeID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load venue",
		})
	}
	if venue == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Venue not found",
		})
	}

	if h.cache != nil {
		if err := h.cache.SetVenueDetails(c.Context(), placeID, venue, h.rankingTTL); err != nil {
			logger.Warn("Failed to cache venue", zap.Error(err))
		}
	}

	return c.JSON(venue)
}

// GetRuns serves the discovery run log for a city.
func (h *VenuesHandler) GetRuns(c *fiber.Ctx) error {
	city := c.Params("city")
	limit := c.QueryInt("limit", 20)

	runs, err := h.db.DiscoveryRuns(city, limit)
	if err != nil {
		logger.Error("Failed to load discovery runs", zap.String("city", city), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load discovery runs",
		})
	}

	return c.JSON(fiber.Map{
		"city": city,
		"runs": runs,
	})
}
