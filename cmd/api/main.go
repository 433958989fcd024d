package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"home-services-leads/internal/cache"
	"home-services-leads/internal/cleanup"
	"home-services-leads/internal/config"
	"home-services-leads/internal/database"
	"home-services-leads/internal/handlers"
	"home-services-leads/internal/leads"
	"home-services-leads/internal/logging"
	"home-services-leads/internal/ratelimit"
	"home-services-leads/internal/scheduler"
	"home-services-leads/internal/scores"
	"home-services-leads/internal/search"
	"home-services-leads/internal/signals"
	"home-services-leads/internal/territory"
	"home-services-leads/internal/zipstats"
)

var (
	appConfig    *config.Config
	gormDB       *database.GormDB
	scoreCache   *cache.ScoreCache
	searchClient *search.SearchClient
	appScheduler *scheduler.Scheduler
	queueWorker  *scheduler.QueueWorker
	rateLimiter  *ratelimit.RateLimiter
)

func main() {
	// Load configuration
	configPath := getEnv("CONFIG_PATH", "config.yaml")
	var err error
	appConfig, err = config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	}
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logging
	logger, err := logging.Init(appConfig.Logging.Mode, appConfig.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()
	logger.Infow("Starting lead engine API", "db", appConfig.Database.Type)

	// Connect database and migrate schema
	gormDB, err = database.Connect(appConfig.Database)
	if err != nil {
		logger.Fatalw("Failed to connect to database", "error", err)
	}
	defer gormDB.Close()

	if err := gormDB.InitSchema(); err != nil {
		logger.Fatalw("Failed to migrate schema", "error", err)
	}
	logger.Infow("Database ready", "driver", gormDB.Driver(),
		"partial_index", gormDB.SupportsPartialIndex())

	// Score cache (optional)
	scoreCache, err = cache.New(appConfig.Redis)
	if err != nil {
		logger.Warnw("Score cache unavailable, continuing without it", "error", err)
		scoreCache = nil
	} else if scoreCache != nil {
		logger.Infow("Score cache connected", "addr", appConfig.Redis.Addr)
	}

	// Search index (optional)
	if appConfig.Search.Meilisearch.Host != "" {
		searchClient = search.NewSearchClient(
			appConfig.Search.Meilisearch.Host,
			appConfig.Search.Meilisearch.APIKey,
		)
		if err := searchClient.InitIndex(); err != nil {
			logger.Warnw("Failed to initialize search index, lead search disabled", "error", err)
			searchClient = nil
		} else {
			logger.Infow("Search index ready", "host", appConfig.Search.Meilisearch.Host)
		}
	}

	// Core services
	db := gormDB.DB()
	signalStore := signals.NewStore(db, appConfig.Scoring)
	scoreService := scores.NewService(db, appConfig, signalStore, scoreCache)
	ledger := territory.NewLedger(db, gormDB.SupportsPartialIndex())
	generator := leads.NewGenerator(db, ledger, appConfig.Trades, appConfig.LeadGen)
	refresher := zipstats.NewRefresher(db, signalStore)

	cleanupConfig := cleanup.DefaultConfig()
	if appConfig.Scheduler.LeadRetentionDays > 0 {
		cleanupConfig.LeadRetentionDays = appConfig.Scheduler.LeadRetentionDays
	}
	if appConfig.Scheduler.QueueRetentionDays > 0 {
		cleanupConfig.QueueRetentionDays = appConfig.Scheduler.QueueRetentionDays
	}
	cleanupService := cleanup.NewService(db, generator, ledger)

	// Rate limiter for mutation endpoints
	rateLimiter = ratelimit.NewRateLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.RequestsPerDay,
		appConfig.RateLimit.Enabled,
	)
	logger.Infow("Rate limiter initialized",
		"per_minute", appConfig.RateLimit.RequestsPerMinute,
		"per_hour", appConfig.RateLimit.RequestsPerHour,
		"per_day", appConfig.RateLimit.RequestsPerDay,
		"enabled", appConfig.RateLimit.Enabled,
	)

	// Nightly rescore scheduler + queue worker
	appScheduler = scheduler.NewScheduler(db, signalStore, appConfig)
	if err := appScheduler.Start(); err != nil {
		logger.Warnw("Failed to start scheduler", "error", err)
	}
	defer appScheduler.Stop()

	queueWorker = scheduler.NewQueueWorker(db, scoreService,
		appConfig.Scheduler.WorkerPollInterval(), appConfig.Scheduler.WorkerBatchSize)
	queueWorker.Start()
	defer queueWorker.Stop()
	logger.Info("Queue worker started")

	// HTTP handlers
	scoringHandler := handlers.NewScoringHandler(scoreService)
	leadsHandler := handlers.NewLeadsHandler(db, generator, searchClient)
	territoriesHandler := handlers.NewTerritoriesHandler(db, ledger)
	adminHandler := handlers.NewAdminHandler(db, appScheduler, queueWorker,
		cleanupService, cleanupConfig, refresher, ledger)

	// Setup Gin router
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5176"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/health", healthCheck)

	// Scoring routes with rate limiting
	r.POST("/api/score", rateLimiter.Middleware(), scoringHandler.ScoreProperty)
	r.POST("/api/score/batch", rateLimiter.Middleware(), scoringHandler.ScoreBatch)
	r.GET("/api/scores", scoringHandler.GetScores)

	// Lead lifecycle
	r.POST("/api/leads/generate", rateLimiter.Middleware(), leadsHandler.Generate)
	r.GET("/api/leads", leadsHandler.List)
	r.POST("/api/leads/:id/assign", rateLimiter.Middleware(), leadsHandler.Assign)
	r.POST("/api/leads/:id/deliver", rateLimiter.Middleware(), leadsHandler.Deliver)
	r.POST("/api/leads/:id/convert", rateLimiter.Middleware(), leadsHandler.Convert)
	r.GET("/api/search/leads", leadsHandler.Search)

	// Territories and contractors
	r.POST("/api/territories", rateLimiter.Middleware(), territoriesHandler.Assign)
	r.GET("/api/territories", territoriesHandler.List)
	r.DELETE("/api/territories/:id", rateLimiter.Middleware(), territoriesHandler.Revoke)
	r.POST("/api/contractors", rateLimiter.Middleware(), territoriesHandler.CreateContractor)

	// Rate limiter stats endpoint
	r.GET("/api/ratelimit/stats", getRateLimitStats)

	// Admin API routes (requires authentication in production)
	admin := r.Group("/api/admin")
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.POST("/rescore", adminHandler.TriggerRescore)
		admin.POST("/zipstats/refresh", adminHandler.RefreshZipStats)
		admin.POST("/cleanup/run", adminHandler.RunCleanup)
	}
	logger.Info("Admin API routes registered at /api/admin/*")

	port := getEnv("PORT", "8084")
	logger.Infow("Server starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalw("Failed to start server", "error", err)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

func getRateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, rateLimiter.GetStats())
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
