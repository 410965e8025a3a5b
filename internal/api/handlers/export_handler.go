package handlers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/export"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

type ExportHandler struct {
	db             *sqlite.Client
	defaultProfile string
}

func NewExportHandler(db *sqlite.Client, defaultProfile string) *ExportHandler {
	return &ExportHandler{
		db:             db,
		defaultProfile: defaultProfile,
	}
}

// ExportCSV streams a city's ranked scores as a CSV download.
func (h *ExportHandler) ExportCSV(c *fiber.Ctx) error {
	city := c.Params("city")
	if city == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "city is required",
		})
	}

	profile := c.Query("profile", h.defaultProfile)
	limit := c.QueryInt("limit", 0)

	records, err := h.db.RankedScoreRecords(city, profile, limit)
	if err != nil {
		logger.Error("Failed to load scores for export", zap.String("city", city), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load scores",
		})
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		logger.Error("Failed to write CSV", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to write CSV",
		})
	}

	filename := fmt.Sprintf("%s_%s_scores.csv", city, profile)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Send(buf.Bytes())
}
