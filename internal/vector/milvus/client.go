package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

// SignatureDim is the length of a venue signature vector.
const SignatureDim = 8

type Client struct {
	client         client.Client
	collectionName string
}

// VenueSignature is a venue's scoring fingerprint stored for similarity
// search: the signal vector plus enough metadata to render a match.
type VenueSignature struct {
	PlaceID   string
	Signature []float32
	Name      string
	City      string
	Profile   string
	FitScore  float64
	ScoredAt  time.Time
}

type Match struct {
	PlaceID  string
	Name     string
	City     string
	Profile  string
	FitScore float64
	Distance float32
}

func NewClient(endpoint, apiKey, collectionName string) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) CreateCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Venue scoring signatures",
		Fields: []*entity.Field{
			{
				Name:       "place_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "signature",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", SignatureDim),
				},
			},
			{
				Name:     "name",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "city",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "profile",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "fit_score",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "scored_at",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 128)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "signature", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Upsert(ctx context.Context, signatures []VenueSignature) error {
	if len(signatures) == 0 {
		return nil
	}

	placeIDs := make([]string, len(signatures))
	vectors := make([][]float32, len(signatures))
	names := make([]string, len(signatures))
	cities := make([]string, len(signatures))
	profiles := make([]string, len(signatures))
	fitScores := make([]float64, len(signatures))
	scoredAts := make([]int64, len(signatures))

	for i, s := range signatures {
		if len(s.Signature) != SignatureDim {
			return fmt.Errorf("signature for %s has dim %d, want %d", s.PlaceID, len(s.Signature), SignatureDim)
		}
		placeIDs[i] = s.PlaceID
		vectors[i] = s.Signature
		names[i] = s.Name
		cities[i] = s.City
		profiles[i] = s.Profile
		fitScores[i] = s.FitScore
		scoredAts[i] = s.ScoredAt.Unix()
	}

	_, err := m.client.Upsert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("place_id", placeIDs),
		entity.NewColumnFloatVector("signature", SignatureDim, vectors),
		entity.NewColumnVarChar("name", names),
		entity.NewColumnVarChar("city", cities),
		entity.NewColumnVarChar("profile", profiles),
		entity.NewColumnDouble("fit_score", fitScores),
		entity.NewColumnInt64("scored_at", scoredAts),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert signatures: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Signatures upserted into vector DB", zap.Int("count", len(signatures)))

	return nil
}

// SearchSimilar finds the venues whose signatures are closest to the query
// vector, optionally restricted to one city and excluding a place ID.
func (m *Client) SearchSimilar(ctx context.Context, signature []float32, topK int, city, excludePlaceID string) ([]Match, error) {
	if len(signature) != SignatureDim {
		return nil, fmt.Errorf("query signature has dim %d, want %d", len(signature), SignatureDim)
	}

	expr := ""
	if city != "" {
		expr = fmt.Sprintf(`city == "%s"`, city)
	}
	if excludePlaceID != "" {
		if expr != "" {
			expr += " && "
		}
		expr += fmt.Sprintf(`place_id != "%s"`, excludePlaceID)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"place_id", "name", "city", "profile", "fit_score"},
		[]entity.Vector{entity.FloatVector(signature)},
		"signature",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]Match, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			placeIDCol := sr.Fields.GetColumn("place_id")
			nameCol := sr.Fields.GetColumn("name")
			cityCol := sr.Fields.GetColumn("city")
			profileCol := sr.Fields.GetColumn("profile")
			fitCol := sr.Fields.GetColumn("fit_score")

			placeID, _ := placeIDCol.Get(i)
			name, _ := nameCol.Get(i)
			cityVal, _ := cityCol.Get(i)
			profile, _ := profileCol.Get(i)
			fit, _ := fitCol.Get(i)

			matches = append(matches, Match{
				PlaceID:  placeID.(string),
				Name:     name.(string),
				City:     cityVal.(string),
				Profile:  profile.(string),
				FitScore: fit.(float64),
				Distance: sr.Scores[i],
			})
		}
	}

	logger.Info("Signature search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(matches)),
		zap.String("filters", expr),
	)

	return matches, nil
}
