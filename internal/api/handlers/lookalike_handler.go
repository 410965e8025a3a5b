package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/lookalike"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

type LookalikeHandler struct {
	finder         *lookalike.Finder
	defaultProfile string
}

// NewLookalikeHandler wires similarity search. finder may be nil when no
// vector store is configured; every route then reports unavailable.
func NewLookalikeHandler(finder *lookalike.Finder, defaultProfile string) *LookalikeHandler {
	return &LookalikeHandler{
		finder:         finder,
		defaultProfile: defaultProfile,
	}
}

func (h *LookalikeHandler) unavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "Vector store not configured",
	})
}

// Index pushes a city's score signatures into the vector store.
func (h *LookalikeHandler) Index(c *fiber.Ctx) error {
	if h.finder == nil {
		return h.unavailable(c)
	}

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
	if req.City == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "city is required",
		})
	}
	if req.Profile == "" {
		req.Profile = h.defaultProfile
	}

	indexed, err := h.finder.IndexCity(c.Context(), req.City, req.Profile)
	if err != nil {
		logger.Error("Failed to index city", zap.String("city", req.City), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to index city",
		})
	}

	return c.JSON(fiber.Map{
		"city":    req.City,
		"profile": req.Profile,
		"indexed": indexed,
	})
}

// Similar finds the venues closest to one venue's score signature.
func (h *LookalikeHandler) Similar(c *fiber.Ctx) error {
	if h.finder == nil {
		return h.unavailable(c)
	}

	placeID := c.Params("place_id")
	city := c.Query("city")
	if placeID == "" || city == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "place_id and city are required",
		})
	}
	profile := c.Query("profile", h.defaultProfile)
	topK := c.QueryInt("top_k", 10)

	matches, err := h.finder.Similar(c.Context(), placeID, city, profile, topK)
	if err != nil {
		logger.Error("Similarity search failed", zap.String("place_id", placeID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Similarity search failed",
		})
	}

	return c.JSON(fiber.Map{
		"place_id": placeID,
		"matches":  matches,
	})
}

// Lookalikes finds venues resembling the averaged signature of a seed set.
// Seeds live in city; target_city, when set, ranks a different market so an
// existing account base can prospect new ground. Seeds arrive as place IDs
// or, via seed_names, as free-text account names resolved against the city.
func (h *LookalikeHandler) Lookalikes(c *fiber.Ctx) error {
	if h.finder == nil {
		return h.unavailable(c)
	}

	var req struct {
		Seeds      []string `json:"seeds"`
		SeedNames  []string `json:"seed_names"`
		City       string   `json:"city"`
		TargetCity string   `json:"target_city"`
		Profile    string   `json:"profile"`
		TopK       int      `json:"top_k"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if (len(req.Seeds) == 0 && len(req.SeedNames) == 0) || req.City == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "city and seeds or seed_names are required",
		})
	}
	if req.Profile == "" {
		req.Profile = h.defaultProfile
	}
	if req.TargetCity == "" {
		req.TargetCity = req.City
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	var unmatched []string
	if len(req.SeedNames) > 0 {
		resolved, missed, err := h.finder.ResolveAccounts(req.City, req.SeedNames)
		if err != nil {
			logger.Error("Account resolution failed", zap.String("city", req.City), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Account resolution failed",
			})
		}
		unmatched = missed
		for _, id := range resolved {
			req.Seeds = append(req.Seeds, id)
		}
		if len(req.Seeds) == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":     "No seed names matched stored venues",
				"unmatched": unmatched,
			})
		}
	}

	matches, err := h.finder.Lookalikes(c.Context(), req.Seeds, req.City, req.TargetCity, req.Profile, req.TopK)
	if err != nil {
		logger.Error("Lookalike search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp := fiber.Map{
		"city":        req.City,
		"target_city": req.TargetCity,
		"profile":     req.Profile,
		"matches":     matches,
	}
	if len(unmatched) > 0 {
		resp["unmatched"] = unmatched
	}
	return c.JSON(resp)
}
