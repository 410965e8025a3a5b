package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/authority"
	"github.com/ArunBNiah/venue-intel/internal/evaluation"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

type EvaluationHandler struct {
	evaluator      *evaluation.Evaluator
	scraper        *authority.Scraper
	defaultProfile string
}

func NewEvaluationHandler(evaluator *evaluation.Evaluator, scraper *authority.Scraper, defaultProfile string) *EvaluationHandler {
	return &EvaluationHandler{
		evaluator:      evaluator,
		scraper:        scraper,
		defaultProfile: defaultProfile,
	}
}

// Evaluate scrapes the authority lists, annotates a city's venues and
// reports how well the stored ranking recovers the listed venues.
func (h *EvaluationHandler) Evaluate(c *fiber.Ctx) error {
	city := c.Params("city")
	if city == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "city is required",
		})
	}
	profile := c.Query("profile", h.defaultProfile)
	topK := c.QueryInt("top_k", 10)

	mentions, err := h.scraper.FetchMentions(c.Context())
	if err != nil {
		logger.Error("Failed to fetch authority mentions", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to fetch authority lists",
		})
	}

	matched, err := h.evaluator.Annotate(city, mentions)
	if err != nil {
		logger.Error("Failed to annotate venues", zap.String("city", city), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to annotate venues",
		})
	}

	report, err := h.evaluator.EvaluateRanking(city, profile, topK, mentions)
	if err != nil {
		logger.Error("Failed to evaluate ranking", zap.String("city", city), zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"report":  report,
		"matched": matched,
	})
}
