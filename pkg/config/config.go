package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Places     PlacesConfig
	Enrichment EnrichmentConfig
	Milvus     MilvusConfig
	Scoring    ScoringConfig
	Pipeline   PipelineConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// TTL in seconds for cached place details and rankings.
	DetailsTTL int
	RankingTTL int
}

type PlacesConfig struct {
	APIKey         string
	BaseURL        string
	MaxResults     int
	TimeoutSec     int
	DetailsWorkers int
}

type EnrichmentConfig struct {
	Enabled     bool
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
	MaxReviews  int
}

type MilvusConfig struct {
	Enabled        bool
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type ScoringConfig struct {
	// Review count at which the quality signal reaches full confidence.
	ConfidenceThreshold int
	// Venues below this review count are dropped before scoring.
	MinReviewFloor int
	DefaultProfile string
}

type PipelineConfig struct {
	Cities       []string
	CategorySets []string
	MaxPerQuery  int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/venue-intel")

	viper.SetEnvPrefix("VENUE_INTEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *Config) error {
	if c.Scoring.ConfidenceThreshold <= 0 {
		return fmt.Errorf("scoring.confidenceThreshold must be positive, got %d", c.Scoring.ConfidenceThreshold)
	}
	if c.Scoring.MinReviewFloor < 0 {
		return fmt.Errorf("scoring.minReviewFloor must not be negative, got %d", c.Scoring.MinReviewFloor)
	}
	if c.Places.MaxResults <= 0 || c.Places.MaxResults > 20 {
		return fmt.Errorf("places.maxResults must be in 1..20, got %d", c.Places.MaxResults)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/venues.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.detailsTTL", 86400)
	viper.SetDefault("redis.rankingTTL", 3600)

	viper.SetDefault("places.baseURL", "https://places.googleapis.com/v1")
	viper.SetDefault("places.maxResults", 20)
	viper.SetDefault("places.timeoutSec", 15)
	viper.SetDefault("places.detailsWorkers", 4)

	viper.SetDefault("enrichment.enabled", false)
	viper.SetDefault("enrichment.model", "gpt-4o-mini")
	viper.SetDefault("enrichment.temperature", 0.0)
	viper.SetDefault("enrichment.maxTokens", 512)
	viper.SetDefault("enrichment.timeoutSec", 30)
	viper.SetDefault("enrichment.maxReviews", 5)

	viper.SetDefault("milvus.enabled", false)
	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "venue_signatures")
	viper.SetDefault("milvus.vectorDim", 8)

	viper.SetDefault("scoring.confidenceThreshold", 50)
	viper.SetDefault("scoring.minReviewFloor", 0)
	viper.SetDefault("scoring.defaultProfile", "premium_spirits")

	viper.SetDefault("pipeline.cities", []string{"london"})
	viper.SetDefault("pipeline.categorySets", []string{"bars", "restaurants"})
	viper.SetDefault("pipeline.maxPerQuery", 20)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
