package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
	"github.com/ArunBNiah/venue-intel/internal/storage/models"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func bptr(v bool) *bool       { return &v }

func seedVenue(i int, reviews int, rating float64) scoring.RawVenueAttributes {
	return scoring.RawVenueAttributes{
		PlaceID:         fmt.Sprintf("place-%d", i),
		Name:            fmt.Sprintf("Bar %d", i),
		City:            "london",
		Address:         fmt.Sprintf("%d Test Street", i),
		Categories:      []string{"cocktail_bar", "bar"},
		PrimaryCategory: "cocktail_bar",
		Rating:          fptr(rating),
		ReviewCount:     iptr(reviews),
		PriceLevel:      iptr(3),
		ServesCocktails: bptr(true),
		FetchedAt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

// newTestApp builds a fiber app with every route wired to a seeded
// in-memory database, matching the server's route layout.
func newTestApp(t *testing.T) (*fiber.App, *sqlite.Client) {
	t.Helper()

	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })

	registry, err := scoring.NewRegistry(scoring.BuiltinProfiles()...)
	require.NoError(t, err)
	scorer := scoring.NewScorer(scoring.DefaultRules(), 50)

	profile, _ := registry.Get("premium_spirits")

	raws := []scoring.RawVenueAttributes{
		seedVenue(1, 1500, 4.7),
		seedVenue(2, 400, 4.2),
		seedVenue(3, 60, 3.8),
	}
	records, err := scorer.ScoreBatch(raws, nil, profile)
	require.NoError(t, err)

	rows := make([]models.VenueScore, len(records))
	for i, rec := range records {
		v := models.VenueFromRaw(raws[i])
		require.NoError(t, db.UpsertVenue(&v))
		rows[i] = models.ScoreFromRecord(rec)
	}
	require.NoError(t, db.SaveScores(rows))

	app := fiber.New()
	api := app.Group("/api/v1")

	venuesHandler := NewVenuesHandler(db, nil, time.Minute, "premium_spirits")
	scoresHandler := NewScoresHandler(db, nil, scorer, registry)
	exportHandler := NewExportHandler(db, "premium_spirits")
	lookalikeHandler := NewLookalikeHandler(nil, "premium_spirits")

	api.Get("/venues/:city/ranked", venuesHandler.GetRanking)
	api.Get("/venues/:city/summary", venuesHandler.GetSummary)
	api.Get("/venues/:city/runs", venuesHandler.GetRuns)
	api.Get("/venue/:place_id", venuesHandler.GetVenue)
	api.Get("/profiles", scoresHandler.ListProfiles)
	api.Post("/profiles", scoresHandler.RegisterProfile)
	api.Post("/scores/recalculate", scoresHandler.Recalculate)
	api.Get("/export/:city", exportHandler.ExportCSV)
	api.Post("/lookalike", lookalikeHandler.Lookalikes)

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func TestGetRankingOrdersByFitScore(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/venues/london/ranked", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "london", body["city"])
	assert.Equal(t, "premium_spirits", body["profile"])
	assert.Equal(t, float64(3), body["count"])

	venues := body["venues"].([]interface{})
	require.Len(t, venues, 3)
	first := venues[0].(map[string]interface{})
	assert.Equal(t, "place-1", first["PlaceID"])
}

func TestGetRankingLimit(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/venues/london/ranked?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])
}

func TestGetRankingUnknownCityEmpty(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/venues/atlantis/ranked", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])
}

func TestGetSummary(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/venues/london/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["VenueCount"])
	assert.Greater(t, body["MaxFit"].(float64), 0.0)
}

func TestGetVenue(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/venue/place-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bar 1", body["Name"])

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/venue/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListProfiles(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/profiles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	profiles := body["profiles"].([]interface{})
	require.Len(t, profiles, 4)
	first := profiles[0].(map[string]interface{})
	assert.Equal(t, "budget_drinks", first["name"])
}

func TestRegisterProfile(t *testing.T) {
	app, _ := newTestApp(t)

	valid := map[string]interface{}{
		"name":        "house_blend",
		"w_volume":    0.3,
		"w_quality":   0.3,
		"w_relevance": 0.4,
		"w_type":      0.3,
		"w_price":     0.3,
		"w_attribute": 0.2,
		"w_keyword":   0.1,
		"w_theme":     0.1,
	}

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/profiles", valid)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	invalid := map[string]interface{}{
		"name":        "broken",
		"w_volume":    0.9,
		"w_quality":   0.9,
		"w_relevance": 0.9,
		"w_type":      0.3,
		"w_price":     0.3,
		"w_attribute": 0.2,
		"w_keyword":   0.1,
		"w_theme":     0.1,
	}

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/profiles", invalid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"].(string), "weights")
}

func TestRecalculate(t *testing.T) {
	app, _ := newTestApp(t)

	req := map[string]interface{}{
		"city":           "london",
		"profile":        "fine_wine",
		"source_profile": "premium_spirits",
	}

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/scores/recalculate", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fine_wine", body["profile"])
	assert.Equal(t, float64(3), body["scored"])

	// Recalculated rows stored under the new profile, source untouched.
	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/venues/london/ranked?profile=fine_wine", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["count"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/venues/london/ranked?profile=premium_spirits", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["count"])
}

func TestRecalculateUnknownProfile(t *testing.T) {
	app, _ := newTestApp(t)

	req := map[string]interface{}{
		"city":    "london",
		"profile": "nope",
	}

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/scores/recalculate", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"].(string), "Unknown profile")
}

func TestRecalculateNoStoredScores(t *testing.T) {
	app, _ := newTestApp(t)

	req := map[string]interface{}{
		"city":    "atlantis",
		"profile": "fine_wine",
	}

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/scores/recalculate", req)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportCSV(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export/london", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "london_premium_spirits_scores.csv")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "rank,name,city"))
	assert.Contains(t, lines[1], "Bar 1")
}

func TestLookalikeUnavailableWithoutVectorStore(t *testing.T) {
	app, _ := newTestApp(t)

	req := map[string]interface{}{
		"seeds": []string{"place-1"},
		"city":  "london",
	}

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/lookalike", req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body["error"].(string), "not configured")
}
