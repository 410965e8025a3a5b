package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
	"github.com/ArunBNiah/venue-intel/internal/storage/models"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS venues (
		place_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		address TEXT,
		latitude REAL,
		longitude REAL,
		categories TEXT,
		primary_category TEXT,
		rating REAL,
		review_count INTEGER,
		price_level INTEGER,
		serves_cocktails INTEGER,
		serves_wine INTEGER,
		serves_beer INTEGER,
		good_for_groups INTEGER,
		reservable INTEGER,
		serves_dessert INTEGER,
		editorial_summary TEXT,
		authority_lists TEXT,
		fetched_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_venues_city ON venues(city);
	CREATE INDEX IF NOT EXISTS idx_venues_category ON venues(primary_category);

	CREATE TABLE IF NOT EXISTS venue_scores (
		place_id TEXT NOT NULL,
		profile TEXT NOT NULL,
		fit_score REAL NOT NULL,
		rank INTEGER,
		rationale TEXT,
		v_score REAL NOT NULL,
		r_score REAL NOT NULL,
		m_score REAL NOT NULL,
		m_type_score REAL NOT NULL,
		m_price_score REAL NOT NULL,
		m_attribute_score REAL NOT NULL,
		m_keyword_score REAL NOT NULL,
		m_theme_score REAL,
		volume_tier TEXT NOT NULL,
		quality_tier TEXT NOT NULL,
		price_tier TEXT NOT NULL,
		confidence TEXT NOT NULL,
		freshness_age_days INTEGER NOT NULL,
		missing_attributes INTEGER NOT NULL DEFAULT 0,
		scored_at INTEGER NOT NULL,
		PRIMARY KEY (place_id, profile),
		FOREIGN KEY (place_id) REFERENCES venues(place_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_scores_profile ON venue_scores(profile, fit_score);

	CREATE TABLE IF NOT EXISTS theme_extractions (
		place_id TEXT NOT NULL,
		label TEXT NOT NULL,
		presence TEXT NOT NULL,
		quote TEXT,
		PRIMARY KEY (place_id, label),
		FOREIGN KEY (place_id) REFERENCES venues(place_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS discovery_runs (
		id TEXT PRIMARY KEY,
		city TEXT NOT NULL,
		category_set TEXT NOT NULL,
		query TEXT NOT NULL,
		results INTEGER NOT NULL,
		new_venues INTEGER NOT NULL,
		ran_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_discovery_city ON discovery_runs(city, ran_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertVenue(v *models.Venue) error {
	categoriesJSON, _ := json.Marshal(v.Categories)
	authorityJSON, _ := json.Marshal(v.AuthorityLists)

	now := time.Now().Unix()

	query := `
		INSERT INTO venues (place_id, name, city, address, latitude, longitude, categories,
			primary_category, rating, review_count, price_level, serves_cocktails, serves_wine,
			serves_beer, good_for_groups, reservable, serves_dessert, editorial_summary,
			authority_lists, fetched_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(place_id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			categories = excluded.categories,
			primary_category = excluded.primary_category,
			rating = excluded.rating,
			review_count = excluded.review_count,
			price_level = excluded.price_level,
			serves_cocktails = excluded.serves_cocktails,
			serves_wine = excluded.serves_wine,
			serves_beer = excluded.serves_beer,
			good_for_groups = excluded.good_for_groups,
			reservable = excluded.reservable,
			serves_dessert = excluded.serves_dessert,
			editorial_summary = excluded.editorial_summary,
			authority_lists = excluded.authority_lists,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(
		query,
		v.PlaceID,
		v.Name,
		v.City,
		v.Address,
		v.Latitude,
		v.Longitude,
		string(categoriesJSON),
		v.PrimaryCategory,
		nullFloat(v.Rating),
		nullInt(v.ReviewCount),
		nullInt(v.PriceLevel),
		nullBool(v.ServesCocktails),
		nullBool(v.ServesWine),
		nullBool(v.ServesBeer),
		nullBool(v.GoodForGroups),
		nullBool(v.Reservable),
		nullBool(v.ServesDessert),
		v.EditorialSummary,
		string(authorityJSON),
		nullTime(v.FetchedAt),
		now,
		now,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert venue: %w", err)
	}

	logger.Debug("Venue upserted", zap.String("place_id", v.PlaceID), zap.String("city", v.City))
	return nil
}

const venueColumns = `place_id, name, city, address, latitude, longitude, categories,
	primary_category, rating, review_count, price_level, serves_cocktails, serves_wine,
	serves_beer, good_for_groups, reservable, serves_dessert, editorial_summary,
	authority_lists, fetched_at, created_at, updated_at`

func (c *Client) GetVenue(placeID string) (*models.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE place_id = ?`

	v, err := scanVenue(c.db.QueryRow(query, placeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return v, nil
}

func (c *Client) VenuesByCity(city string) ([]models.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE city = ? ORDER BY place_id`

	rows, err := c.db.Query(query, city)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	defer rows.Close()

	var venues []models.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		venues = append(venues, *v)
	}

	return venues, rows.Err()
}

// KnownPlaceIDs returns the set of already-stored place IDs for a city so the
// pipeline can skip refetching them.
func (c *Client) KnownPlaceIDs(city string) (map[string]bool, error) {
	rows, err := c.db.Query(`SELECT place_id FROM venues WHERE city = ?`, city)
	if err != nil {
		return nil, fmt.Errorf("failed to get place ids: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		known[id] = true
	}

	return known, rows.Err()
}

// SaveScores replaces a profile's score rows for the given records in one
// transaction, so a half-written batch never becomes visible.
func (c *Client) SaveScores(scores []models.VenueScore) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO venue_scores (place_id, profile, fit_score, rank, rationale,
			v_score, r_score, m_score, m_type_score, m_price_score, m_attribute_score,
			m_keyword_score, m_theme_score, volume_tier, quality_tier, price_tier,
			confidence, freshness_age_days, missing_attributes, scored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(place_id, profile) DO UPDATE SET
			fit_score = excluded.fit_score,
			rank = excluded.rank,
			rationale = excluded.rationale,
			v_score = excluded.v_score,
			r_score = excluded.r_score,
			m_score = excluded.m_score,
			m_type_score = excluded.m_type_score,
			m_price_score = excluded.m_price_score,
			m_attribute_score = excluded.m_attribute_score,
			m_keyword_score = excluded.m_keyword_score,
			m_theme_score = excluded.m_theme_score,
			volume_tier = excluded.volume_tier,
			quality_tier = excluded.quality_tier,
			price_tier = excluded.price_tier,
			confidence = excluded.confidence,
			freshness_age_days = excluded.freshness_age_days,
			missing_attributes = excluded.missing_attributes,
			scored_at = excluded.scored_at
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range scores {
		_, err := stmt.Exec(
			s.PlaceID,
			s.Profile,
			s.FitScore,
			s.Rank,
			s.Rationale,
			s.VScore,
			s.RScore,
			s.MScore,
			s.TypeScore,
			s.PriceScore,
			s.AttributeScore,
			s.KeywordScore,
			nullFloat(s.ThemeScore),
			s.VolumeTier,
			s.QualityTier,
			s.PriceTier,
			s.Confidence,
			s.FreshnessAgeDays,
			boolInt(s.MissingAttributes),
			s.ScoredAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to save score for %s: %w", s.PlaceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scores: %w", err)
	}

	logger.Info("Scores saved", zap.Int("count", len(scores)))
	return nil
}

// RankedScores returns a city's score rows for one profile ordered by rank.
func (c *Client) RankedScores(city, profile string, limit int) ([]models.VenueScore, error) {
	query := `
		SELECT ` + scoreColumnsPrefixed + `
		FROM venue_scores s JOIN venues v ON v.place_id = s.place_id
		WHERE v.city = ? AND s.profile = ?
		ORDER BY s.fit_score DESC
	`
	args := []interface{}{city, profile}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return c.queryScores(query, args...)
}

// RankedScoreRecords returns a city's ranked scores for one profile with the
// venue identity columns joined in, so callers rebuilding score records do
// not need a per-row venue lookup.
func (c *Client) RankedScoreRecords(city, profile string, limit int) ([]scoring.VenueScoreRecord, error) {
	query := `
		SELECT ` + scoreColumnsPrefixed + `,
			v.name, v.city, COALESCE(v.address, ''), v.latitude, v.longitude
		FROM venue_scores s JOIN venues v ON v.place_id = s.place_id
		WHERE v.city = ? AND s.profile = ?
		ORDER BY s.fit_score DESC
	`
	args := []interface{}{city, profile}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query score records: %w", err)
	}
	defer rows.Close()

	var records []scoring.VenueScoreRecord
	for rows.Next() {
		var s models.VenueScore
		var v models.Venue
		var rationale sql.NullString
		var rank sql.NullInt64
		var theme sql.NullFloat64
		var missing int
		var scoredAt int64

		err := rows.Scan(
			&s.PlaceID, &s.Profile, &s.FitScore, &rank, &rationale,
			&s.VScore, &s.RScore, &s.MScore, &s.TypeScore, &s.PriceScore,
			&s.AttributeScore, &s.KeywordScore, &theme,
			&s.VolumeTier, &s.QualityTier, &s.PriceTier,
			&s.Confidence, &s.FreshnessAgeDays, &missing, &scoredAt,
			&v.Name, &v.City, &v.Address, &v.Latitude, &v.Longitude,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		s.Rank = int(rank.Int64)
		s.Rationale = rationale.String
		s.ThemeScore = floatPtr(theme)
		s.MissingAttributes = missing != 0
		s.ScoredAt = time.Unix(scoredAt, 0)

		records = append(records, s.ToRecord(v))
	}

	return records, rows.Err()
}

// ScoresByVolumeTier filters a city's rows for one profile by volume tier.
func (c *Client) ScoresByVolumeTier(city, profile, tier string) ([]models.VenueScore, error) {
	query := `
		SELECT ` + scoreColumnsPrefixed + `
		FROM venue_scores s JOIN venues v ON v.place_id = s.place_id
		WHERE v.city = ? AND s.profile = ? AND s.volume_tier = ?
		ORDER BY s.fit_score DESC
	`
	return c.queryScores(query, city, profile, tier)
}

func (c *Client) queryScores(query string, args ...interface{}) ([]models.VenueScore, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var scores []models.VenueScore
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scores = append(scores, *s)
	}

	return scores, rows.Err()
}

func (c *Client) GetCitySummary(city, profile string) (*models.CitySummary, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(s.fit_score), 0), COALESCE(MAX(s.fit_score), 0),
			COALESCE(SUM(CASE WHEN s.confidence = 'high' THEN 1 ELSE 0 END), 0),
			COALESCE(MAX(s.scored_at), 0)
		FROM venue_scores s JOIN venues v ON v.place_id = s.place_id
		WHERE v.city = ? AND s.profile = ?
	`

	var summary models.CitySummary
	var lastScored int64
	err := c.db.QueryRow(query, city, profile).Scan(
		&summary.VenueCount,
		&summary.MeanFit,
		&summary.MaxFit,
		&summary.HighConf,
		&lastScored,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get city summary: %w", err)
	}

	summary.City = city
	summary.Profile = profile
	if lastScored > 0 {
		summary.LastScoredAt = time.Unix(lastScored, 0)
	}
	return &summary, nil
}

func (c *Client) SaveThemes(rows []models.ThemeRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO theme_extractions (place_id, label, presence, quote)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(place_id, label) DO UPDATE SET
			presence = excluded.presence,
			quote = excluded.quote
	`

	for _, r := range rows {
		if _, err := tx.Exec(query, r.PlaceID, r.Label, r.Presence, r.Quote); err != nil {
			return fmt.Errorf("failed to save theme for %s: %w", r.PlaceID, err)
		}
	}

	return tx.Commit()
}

// ThemesByCity loads every stored extraction for a city keyed by place ID.
func (c *Client) ThemesByCity(city string) (map[string][]models.ThemeRow, error) {
	query := `
		SELECT t.place_id, t.label, t.presence, COALESCE(t.quote, '')
		FROM theme_extractions t JOIN venues v ON v.place_id = t.place_id
		WHERE v.city = ?
	`

	rows, err := c.db.Query(query, city)
	if err != nil {
		return nil, fmt.Errorf("failed to query themes: %w", err)
	}
	defer rows.Close()

	themes := make(map[string][]models.ThemeRow)
	for rows.Next() {
		var r models.ThemeRow
		if err := rows.Scan(&r.PlaceID, &r.Label, &r.Presence, &r.Quote); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		themes[r.PlaceID] = append(themes[r.PlaceID], r)
	}

	return themes, rows.Err()
}

func (c *Client) LogDiscoveryRun(run *models.DiscoveryRun) error {
	query := `
		INSERT INTO discovery_runs (id, city, category_set, query, results, new_venues, ran_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.City,
		run.CategorySet,
		run.Query,
		run.Results,
		run.NewVenues,
		run.RanAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to log discovery run: %w", err)
	}

	logger.Info("Discovery run logged",
		zap.String("city", run.City),
		zap.String("category_set", run.CategorySet),
		zap.Int("results", run.Results),
		zap.Int("new_venues", run.NewVenues),
	)

	return nil
}

func (c *Client) DiscoveryRuns(city string, limit int) ([]models.DiscoveryRun, error) {
	query := `
		SELECT id, city, category_set, query, results, new_venues, ran_at
		FROM discovery_runs
		WHERE city = ?
		ORDER BY ran_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, city, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query discovery runs: %w", err)
	}
	defer rows.Close()

	var runs []models.DiscoveryRun
	for rows.Next() {
		var r models.DiscoveryRun
		var ranAt int64
		if err := rows.Scan(&r.ID, &r.City, &r.CategorySet, &r.Query, &r.Results, &r.NewVenues, &ranAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.RanAt = time.Unix(ranAt, 0)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVenue(row scanner) (*models.Venue, error) {
	var v models.Venue
	var categoriesJSON, authorityJSON sql.NullString
	var address, summary sql.NullString
	var rating sql.NullFloat64
	var reviewCount, priceLevel sql.NullInt64
	var cocktails, wine, beer, groups, reservable, dessert sql.NullInt64
	var fetchedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&v.PlaceID, &v.Name, &v.City, &address, &v.Latitude, &v.Longitude,
		&categoriesJSON, &v.PrimaryCategory, &rating, &reviewCount, &priceLevel,
		&cocktails, &wine, &beer, &groups, &reservable, &dessert,
		&summary, &authorityJSON, &fetchedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Address = address.String
	v.EditorialSummary = summary.String
	if categoriesJSON.Valid {
		json.Unmarshal([]byte(categoriesJSON.String), &v.Categories)
	}
	if authorityJSON.Valid {
		json.Unmarshal([]byte(authorityJSON.String), &v.AuthorityLists)
	}
	v.Rating = floatPtr(rating)
	v.ReviewCount = intPtr(reviewCount)
	v.PriceLevel = intPtr(priceLevel)
	v.ServesCocktails = boolPtr(cocktails)
	v.ServesWine = boolPtr(wine)
	v.ServesBeer = boolPtr(beer)
	v.GoodForGroups = boolPtr(groups)
	v.Reservable = boolPtr(reservable)
	v.ServesDessert = boolPtr(dessert)
	if fetchedAt.Valid {
		v.FetchedAt = time.Unix(fetchedAt.Int64, 0)
	}
	v.CreatedAt = time.Unix(createdAt, 0)
	v.UpdatedAt = time.Unix(updatedAt, 0)

	return &v, nil
}

const scoreColumnsPrefixed = `s.place_id, s.profile, s.fit_score, s.rank, s.rationale,
	s.v_score, s.r_score, s.m_score, s.m_type_score, s.m_price_score, s.m_attribute_score,
	s.m_keyword_score, s.m_theme_score, s.volume_tier, s.quality_tier, s.price_tier,
	s.confidence, s.freshness_age_days, s.missing_attributes, s.scored_at`

func scanScore(row scanner) (*models.VenueScore, error) {
	var s models.VenueScore
	var rationale sql.NullString
	var rank sql.NullInt64
	var theme sql.NullFloat64
	var missing int
	var scoredAt int64

	err := row.Scan(
		&s.PlaceID, &s.Profile, &s.FitScore, &rank, &rationale,
		&s.VScore, &s.RScore, &s.MScore, &s.TypeScore, &s.PriceScore,
		&s.AttributeScore, &s.KeywordScore, &theme,
		&s.VolumeTier, &s.QualityTier, &s.PriceTier,
		&s.Confidence, &s.FreshnessAgeDays, &missing, &scoredAt,
	)
	if err != nil {
		return nil, err
	}

	s.Rank = int(rank.Int64)
	s.Rationale = rationale.String
	s.ThemeScore = floatPtr(theme)
	s.MissingAttributes = missing != 0
	s.ScoredAt = time.Unix(scoredAt, 0)

	return &s, nil
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func nullBool(b *bool) interface{} {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func intPtr(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}

func boolPtr(i sql.NullInt64) *bool {
	if !i.Valid {
		return nil
	}
	v := i.Int64 != 0
	return &v
}
