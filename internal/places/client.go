package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
	"github.com/ArunBNiah/venue-intel/pkg/circuitbreaker"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
	"github.com/ArunBNiah/venue-intel/pkg/retry"
)

// Field masks for the Places API v1. Search requests ask for the full venue
// shape up front so a discovery pass needs no follow-up details calls.
const (
	searchFieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
		"places.types,places.primaryType,places.rating,places.userRatingCount,places.priceLevel," +
		"places.editorialSummary,places.servesCocktails,places.servesWine,places.servesBeer," +
		"places.goodForGroups,places.reservable,places.servesDessert"

	detailsFieldMask = "id,displayName,formattedAddress,location,types,primaryType,rating," +
		"userRatingCount,priceLevel,editorialSummary,servesCocktails,servesWine,servesBeer," +
		"goodForGroups,reservable,servesDessert"
)

// Per-request SKU prices in USD, used for budget estimates only.
const (
	searchCostUSD  = 0.032
	detailsCostUSD = 0.020
)

type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	retryCfg   retry.Config
	now        func() time.Time
}

func NewClient(apiKey, baseURL string, maxResults, timeoutSec int) *Client {
	if baseURL == "" {
		baseURL = "https://places.googleapis.com/v1"
	}
	if maxResults <= 0 || maxResults > 20 {
		maxResults = 20
	}
	if timeoutSec <= 0 {
		timeoutSec = 15
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.Logger = logger.GetLogger()

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		breaker: circuitbreaker.NewCircuitBreaker("places", circuitbreaker.Config{
			Logger: logger.GetLogger(),
		}),
		retryCfg: retryCfg,
		now:      time.Now,
	}
}

// SearchText runs a text-search discovery query and returns fully populated
// venues tagged with the given city.
func (c *Client) SearchText(ctx context.Context, query, city string) ([]scoring.RawVenueAttributes, error) {
	logger.Info("Places text search", zap.String("query", query), zap.String("city", city))

	reqBody, err := json.Marshal(map[string]interface{}{
		"textQuery":      query,
		"maxResultCount": c.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	var parsed searchResponse
	err = c.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryCfg, func() error {
			body, err := c.post(ctx, "/places:searchText", searchFieldMask, reqBody)
			if err != nil {
				return err
			}
			return json.Unmarshal(body, &parsed)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("places search failed: %w", err)
	}

	fetchedAt := c.now()
	venues := make([]scoring.RawVenueAttributes, 0, len(parsed.Places))
	for _, p := range parsed.Places {
		venues = append(venues, p.toRaw(city, fetchedAt))
	}

	logger.Info("Places text search completed",
		zap.String("city", city),
		zap.Int("results", len(venues)),
	)

	return venues, nil
}

// Details refreshes a single venue by place ID.
func (c *Client) Details(ctx context.Context, placeID, city string) (scoring.RawVenueAttributes, error) {
	var parsed place
	err := c.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryCfg, func() error {
			body, err := c.get(ctx, "/places/"+placeID, detailsFieldMask)
			if err != nil {
				return err
			}
			return json.Unmarshal(body, &parsed)
		})
	})
	if err != nil {
		return scoring.RawVenueAttributes{}, fmt.Errorf("places details failed for %s: %w", placeID, err)
	}

	return parsed.toRaw(city, c.now()), nil
}

// EstimateCost projects the API spend for a discovery pass.
func EstimateCost(searches, detailRefreshes int) float64 {
	return float64(searches)*searchCostUSD + float64(detailRefreshes)*detailsCostUSD
}

func (c *Client) post(ctx context.Context, path, fieldMask string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req, fieldMask)

	return c.do(req)
}

func (c *Client) get(ctx context.Context, path, fieldMask string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuthHeaders(req, fieldMask)

	return c.do(req)
}

func (c *Client) setAuthHeaders(req *http.Request, fieldMask string) {
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
