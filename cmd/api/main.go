package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/api/handlers"
	"github.com/ArunBNiah/venue-intel/internal/authority"
	"github.com/ArunBNiah/venue-intel/internal/cache/redis"
	"github.com/ArunBNiah/venue-intel/internal/enrichment"
	"github.com/ArunBNiah/venue-intel/internal/evaluation"
	"github.com/ArunBNiah/venue-intel/internal/lookalike"
	"github.com/ArunBNiah/venue-intel/internal/metrics"
	"github.com/ArunBNiah/venue-intel/internal/middleware/ratelimit"
	"github.com/ArunBNiah/venue-intel/internal/middleware/security"
	"github.com/ArunBNiah/venue-intel/internal/middleware/validation"
	"github.com/ArunBNiah/venue-intel/internal/pipeline"
	"github.com/ArunBNiah/venue-intel/internal/places"
	"github.com/ArunBNiah/venue-intel/internal/scoring"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
	"github.com/ArunBNiah/venue-intel/internal/vector/milvus"
	"github.com/ArunBNiah/venue-intel/pkg/config"
	appLogger "github.com/ArunBNiah/venue-intel/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Venue Intelligence API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	cacheClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Warn("Redis unavailable, caching disabled", zap.Error(err))
		cacheClient = nil
	} else {
		defer cacheClient.Close()
	}

	placesClient := places.NewClient(
		cfg.Places.APIKey,
		cfg.Places.BaseURL,
		cfg.Places.MaxResults,
		cfg.Places.TimeoutSec,
	)

	var extractor pipeline.ThemeExtractor
	if cfg.Enrichment.Enabled {
		extractor = enrichment.NewExtractor(
			cfg.Enrichment.APIKey,
			cfg.Enrichment.Model,
			cfg.Enrichment.Temperature,
			cfg.Enrichment.MaxTokens,
			cfg.Enrichment.MaxReviews,
		)
	}

	registry, err := scoring.NewRegistry(scoring.BuiltinProfiles()...)
	if err != nil {
		appLogger.Fatal("Failed to build profile registry", zap.Error(err))
	}

	scorer := scoring.NewScorer(scoring.DefaultRules(), cfg.Scoring.ConfidenceThreshold)

	runner := pipeline.NewRunner(
		sqliteClient,
		placesClient,
		extractor,
		scorer,
		registry,
		cfg.Pipeline.CategorySets,
		cfg.Scoring.MinReviewFloor,
	)

	var finder *lookalike.Finder
	if cfg.Milvus.Enabled {
		milvusClient, err := milvus.NewClient(cfg.Milvus.Endpoint, cfg.Milvus.APIKey, cfg.Milvus.CollectionName)
		if err != nil {
			appLogger.Warn("Milvus unavailable, lookalike search disabled", zap.Error(err))
		} else {
			defer milvusClient.Close()
			if err := milvusClient.CreateCollection(context.Background()); err != nil {
				appLogger.Warn("Failed to create signature collection", zap.Error(err))
			} else {
				finder = lookalike.NewFinder(sqliteClient, milvusClient)
			}
		}
	}

	scraper := authority.NewScraper(authority.DefaultLists(), cfg.Places.TimeoutSec)
	evaluator := evaluation.NewEvaluator(sqliteClient, scraper)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	rankingTTL := time.Duration(cfg.Redis.RankingTTL) * time.Second

	venuesHandler := handlers.NewVenuesHandler(sqliteClient, cacheClient, rankingTTL, cfg.Scoring.DefaultProfile)
	scoresHandler := handlers.NewScoresHandler(sqliteClient, cacheClient, scorer, registry)
	pipelineHandler := handlers.NewPipelineHandler(runner, cacheClient)
	exportHandler := handlers.NewExportHandler(sqliteClient, cfg.Scoring.DefaultProfile)
	lookalikeHandler := handlers.NewLookalikeHandler(finder, cfg.Scoring.DefaultProfile)
	evaluationHandler := handlers.NewEvaluationHandler(evaluator, scraper, cfg.Scoring.DefaultProfile)
	wsHandler := handlers.NewWebSocketHandler(runner)

	api := app.Group("/api/v1")

	api.Get("/venues/:city/ranked", venuesHandler.GetRanking)
	api.Get("/venues/:city/summary", venuesHandler.GetSummary)
	api.Get("/venues/:city/runs", venuesHandler.GetRuns)
	api.Get("/venue/:place_id", venuesHandler.GetVenue)

	api.Get("/profiles", scoresHandler.ListProfiles)
	api.Post("/profiles", scoresHandler.RegisterProfile)
	api.Post("/scores/recalculate", scoresHandler.Recalculate)

	api.Post("/pipeline/run", pipelineHandler.Run)
	api.Post("/pipeline/refresh", pipelineHandler.Refresh)

	api.Get("/export/:city", exportHandler.ExportCSV)

	api.Post("/lookalike/index", lookalikeHandler.Index)
	api.Post("/lookalike", lookalikeHandler.Lookalikes)
	api.Get("/lookalike/similar/:place_id", lookalikeHandler.Similar)

	api.Post("/evaluate/:city", evaluationHandler.Evaluate)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/pipeline", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
