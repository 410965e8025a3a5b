package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/cache/redis"
	"github.com/ArunBNiah/venue-intel/internal/pipeline"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

type PipelineHandler struct {
	runner *pipeline.Runner
	cache  *redis.Client
}

func NewPipelineHandler(runner *pipeline.Runner, cache *redis.Client) *PipelineHandler {
	return &PipelineHandler{
		runner: runner,
		cache:  cache,
	}
}

// Run triggers a discovery-and-score pass for a city.
func (h *PipelineHandler) Run(c *fiber.Ctx) error {
	var req struct {
		City    string `json:"city"`
		Profile string `json:"profile"`
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

	result, err := h.runner.Run(c.Context(), req.City, req.Profile)
	if err != nil {
		logger.Error("Pipeline run failed", zap.String("city", req.City), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.invalidate(c)
	return c.JSON(result)
}

// Refresh refetches details for every stored venue in a city and re-scores.
func (h *PipelineHandler) Refresh(c *fiber.Ctx) error {
	var req struct {
		City    string `json:"city"`
		Profile string `json:"profile"`
		Workers int    `json:"workers"`
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

	result, err := h.runner.RefreshCity(c.Context(), req.City, req.Profile, req.Workers)
	if err != nil {
		logger.Error("Pipeline refresh failed", zap.String("city", req.City), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.invalidate(c)
	return c.JSON(result)
}

func (h *PipelineHandler) invalidate(c *fiber.Ctx) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateRankings(c.Context()); err != nil {
		logger.Warn("Failed to invalidate ranking cache", zap.Error(err))
	}
}
