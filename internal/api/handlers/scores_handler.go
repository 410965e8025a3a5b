package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/cache/redis"
	"github.com/ArunBNiah/venue-intel/internal/scoring"
	"github.com/ArunBNiah/venue-intel/internal/storage/models"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

type ScoresHandler struct {
	db       *sqlite.Client
	cache    *redis.Client
	scorer   *scoring.Scorer
	profiles *scoring.Registry
}

func NewScoresHandler(db *sqlite.Client, cache *redis.Client, scorer *scoring.Scorer, profiles *scoring.Registry) *ScoresHandler {
	return &ScoresHandler{
		db:       db,
		cache:    cache,
		scorer:   scorer,
		profiles: profiles,
	}
}

// ListProfiles serves the registered brand profiles with their weights.
func (h *ScoresHandler) ListProfiles(c *fiber.Ctx) error {
	names := h.profiles.Names()
	out := make([]scoring.Profile, 0, len(names))
	for _, name := range names {
		if p, ok := h.profiles.Get(name); ok {
			out = append(out, p)
		}
	}

	return c.JSON(fiber.Map{
		"profiles": out,
	})
}

// RegisterProfile validates and registers a custom brand profile.
func (h *ScoresHandler) RegisterProfile(c *fiber.Ctx) error {
	var p scoring.Profile
	if err := c.BodyParser(&p); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if p.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Profile name is required",
		})
	}

	if err := h.profiles.Register(p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	logger.Info("Profile registered", zap.String("profile", p.Name))
	return c.Status(fiber.StatusCreated).JSON(p)
}

// Recalculate reweights a city's stored sub-scores under a target profile
// without refetching anything. Source scores come from the source_profile
// rows (defaults to the target when the target is already stored).
func (h *ScoresHandler) Recalculate(c *fiber.Ctx) error {
	var req struct {
		City          string `json:"city"`
		Profile       string `json:"profile"`
		SourceProfile string `json:"source_profile"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.City == "" || req.Profile == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "city and profile are required",
		})
	}

	profile, ok := h.profiles.Get(req.Profile)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown profile: " + req.Profile,
		})
	}

	source := req.SourceProfile
	if source == "" {
		source = req.Profile
	}

	records, err := h.db.RankedScoreRecords(req.City, source, 0)
	if err != nil {
		logger.Error("Failed to load stored scores", zap.String("city", req.City), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load stored scores",
		})
	}
	if len(records) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No stored scores for city under source profile",
		})
	}

	recalced, err := h.scorer.RecalculateBatch(records, profile)
	if err != nil {
		logger.Error("Failed to recalculate scores", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to recalculate scores",
		})
	}

	rows := make([]models.VenueScore, len(recalced))
	for i, rec := range recalced {
		rows[i] = models.ScoreFromRecord(rec)
	}
	if err := h.db.SaveScores(rows); err != nil {
		logger.Error("Failed to save recalculated scores", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save recalculated scores",
		})
	}

	if h.cache != nil {
		if err := h.cache.InvalidateRankings(c.Context()); err != nil {
			logger.Warn("Failed to invalidate ranking cache", zap.Error(err))
		}
	}

	logger.Info("Scores recalculated",
		zap.String("city", req.City),
		zap.String("profile", req.Profile),
		zap.Int("count", len(recalced)),
	)

	return c.JSON(fiber.Map{
		"city":    req.City,
		"profile": req.Profile,
		"scored":  len(recalced),
		"venues":  recalced,
	})
}
