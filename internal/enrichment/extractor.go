package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
	"github.com/ArunBNiah/venue-intel/pkg/circuitbreaker"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
	"github.com/ArunBNiah/venue-intel/pkg/retry"
)

const systemPrompt = `You are a venue analyst. Given review excerpts for one venue, decide whether each theme below is present, absent, or unclear.

Themes:
- cocktail_focus: the venue is known for cocktails or a serious cocktail menu
- spirits_depth: a deep or curated spirits selection (whisky, gin, agave, etc.)
- upscale_atmosphere: premium, refined, or sophisticated setting
- service_quality: knowledgeable or attentive staff called out by reviewers
- price_value_focus: reviewers emphasise cheapness, deals, or low prices

Respond with ONLY a JSON array, one object per theme:
[{"label": "cocktail_focus", "presence": "present", "supporting_quote": "..."}]

presence must be "present", "absent", or "unclear". supporting_quote is a short verbatim snippet, or empty when presence is not "present". Never invent quotes.`

// Extractor turns raw review text into controlled-label theme extractions.
// It is an optional collaborator: every failure degrades to no extraction
// rather than blocking a scoring run.
type Extractor struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	maxReviews  int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewExtractor(apiKey, model string, temperature float32, maxTokens, maxReviews int) *Extractor {
	cb := circuitbreaker.NewCircuitBreaker("enrichment", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if maxReviews <= 0 {
		maxReviews = 5
	}

	logger.Info("Theme extractor initialized", zap.String("model", model))

	return &Extractor{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		maxReviews:  maxReviews,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// ExtractThemes evaluates the controlled theme labels for one venue's
// reviews. Only labels come back to the caller; raw review text never leaves
// this package.
func (e *Extractor) ExtractThemes(ctx context.Context, venueName string, reviews []string) ([]scoring.ThemeExtraction, error) {
	if len(reviews) == 0 {
		return nil, nil
	}
	if len(reviews) > e.maxReviews {
		reviews = reviews[:e.maxReviews]
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	userPrompt := fmt.Sprintf("Venue: %s\n\nReviews:\n%s", venueName, strings.Join(reviews, "\n---\n"))

	var content string
	err := e.cb.Execute(ctx, func() error {
		return retry.Do(ctx, e.retryConfig, func() error {
			resp, err := e.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       e.model,
					Temperature: e.temperature,
					MaxTokens:   e.maxTokens,
					Messages: []openai.ChatCompletionMessage{
						{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
						{Role: openai.ChatMessageRoleUser, Content: userPrompt},
					},
				},
			)
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		logger.Warn("Theme extraction failed, continuing without themes",
			zap.String("venue", venueName),
			zap.Error(err),
		)
		return nil, err
	}

	themes, err := ParseExtractions(content)
	if err != nil {
		logger.Warn("Theme extraction unparseable, continuing without themes",
			zap.String("venue", venueName),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Debug("Themes extracted",
		zap.String("venue", venueName),
		zap.Int("labels", len(themes)),
	)

	return themes, nil
}

var validLabels = map[scoring.ThemeLabel]bool{
	scoring.ThemeCocktailFocus:     true,
	scoring.ThemeSpiritsDepth:      true,
	scoring.ThemeUpscaleAtmosphere: true,
	scoring.ThemeServiceQuality:    true,
	scoring.ThemePriceValueFocus:   true,
}

var validPresence = map[scoring.ThemePresence]bool{
	scoring.ThemePresent: true,
	scoring.ThemeAbsent:  true,
	scoring.ThemeUnclear: true,
}

// ParseExtractions decodes a model response into extractions, keeping only
// rows with a known label and presence. Markdown code fences around the JSON
// are tolerated.
func ParseExtractions(content string) ([]scoring.ThemeExtraction, error) {
	content = stripFences(content)

	var rows []scoring.ThemeExtraction
	if err := json.Unmarshal([]byte(content), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	themes := make([]scoring.ThemeExtraction, 0, len(rows))
	seen := make(map[scoring.ThemeLabel]bool)
	for _, row := range rows {
		if !validLabels[row.Label] || !validPresence[row.Presence] {
			continue
		}
		if seen[row.Label] {
			continue
		}
		seen[row.Label] = true
		if row.Presence != scoring.ThemePresent {
			row.SupportingQuote = ""
		}
		themes = append(themes, row)
	}

	if len(themes) == 0 {
		return nil, fmt.Errorf("extraction response contained no valid labels")
	}

	return themes, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
