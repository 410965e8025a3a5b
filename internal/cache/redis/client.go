package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetVenueDetails caches a fetched venue's raw attributes under its place ID
// so repeat pipeline runs within the TTL skip the Places API entirely.
func (c *Client) SetVenueDetails(ctx context.Context, placeID string, venue interface{}, ttl time.Duration) error {
	data, err := json.Marshal(venue)
	if err != nil {
		return fmt.Errorf("failed to marshal venue: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("venue:%s", placeID), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set venue cache: %w", err)
	}

	logger.Debug("Venue cached", zap.String("place_id", placeID), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetVenueDetails(ctx context.Context, placeID string, venue interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("venue:%s", placeID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get venue cache: %w", err)
	}

	err = json.Unmarshal(data, venue)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal venue: %w", err)
	}

	logger.Debug("Venue cache hit", zap.String("place_id", placeID))
	return true, nil
}

// SetRanking caches a rendered (city, profile) ranking keyed by the request
// hash; InvalidateRankings clears all of them after a re-score.
func (c *Client) SetRanking(ctx context.Context, requestHash string, ranking interface{}, ttl time.Duration) error {
	data, err := json.Marshal(ranking)
	if err != nil {
		return fmt.Errorf("failed to marshal ranking: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("ranking:%s", requestHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set ranking cache: %w", err)
	}

	logger.Debug("Ranking cached", zap.String("request_hash", requestHash), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetRanking(ctx context.Context, requestHash string, ranking interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("ranking:%s", requestHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get ranking cache: %w", err)
	}

	err = json.Unmarshal(data, ranking)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal ranking: %w", err)
	}

	logger.Debug("Ranking cache hit", zap.String("request_hash", requestHash))
	return true, nil
}

func (c *Client) InvalidateRankings(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "ranking:*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Ranking cache invalidated")
	return nil
}

func (c *Client) IncrementMetric(ctx context.Context, metricName string) error {
	return c.client.Incr(ctx, fmt.Sprintf("metric:%s", metricName)).Err()
}

func (c *Client) GetMetric(ctx context.Context, metricName string) (int64, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf("metric:%s", metricName)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
