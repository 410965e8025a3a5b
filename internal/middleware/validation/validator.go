package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union|select|insert|update|delete|drop|create|alter|exec|script|javascript|onerror|onload)`)
	xssPattern          = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
	profileNamePattern  = regexp.MustCompile(`^[a-z0-9_]+$`)
)

type Config struct {
	MaxCityLength       int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects malformed or hostile request bodies before they reach
// the handlers. City names feed SQL parameters and discovery queries, so
// they get the strictest checks.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxCityLength == 0 {
		cfg.MaxCityLength = 100
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if c.Method() == "POST" && (strings.Contains(path, "/api/v1/pipeline") ||
			strings.Contains(path, "/api/v1/scores") ||
			strings.Contains(path, "/api/v1/lookalike")) {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if city, ok := req["city"].(string); ok && city != "" {
				if len(city) > cfg.MaxCityLength {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "City exceeds maximum length",
					})
				}

				if containsSQLInjection(city) || containsXSS(city) {
					cfg.Logger.Warn("Hostile city parameter",
						zap.String("ip", c.IP()),
						zap.String("city", city),
					)
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Invalid city",
					})
				}
			}
		}

		if c.Method() == "POST" && strings.Contains(path, "/api/v1/profiles") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			name, ok := req["name"].(string)
			if !ok || name == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Profile name is required and must be a string",
				})
			}

			if !profileNamePattern.MatchString(name) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Profile name must be lowercase alphanumeric with underscores",
				})
			}
		}

		return c.Next()
	}
}

func containsSQLInjection(input string) bool {
	return sqlInjectionPattern.MatchString(input)
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}
