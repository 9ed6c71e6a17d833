package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/subtrackr/backend/internal/config"
	"github.com/subtrackr/backend/internal/database"
	"github.com/subtrackr/backend/internal/database/migrations"
	"github.com/subtrackr/backend/internal/jobs"
	"github.com/subtrackr/backend/internal/queue"
	"github.com/subtrackr/backend/internal/routes"
	"github.com/subtrackr/backend/internal/services/exchange"
	"github.com/subtrackr/backend/internal/services/subscription"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := config.New()

	// Setup database connection (includes AutoMigrate)
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run versioned migrations on top of AutoMigrate
	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Exchange-rate provider with a Redis-cached snapshot decorator
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rateProvider := exchange.NewCachedRateProvider(
		exchange.NewHTTPRateProvider(cfg.Exchange.BaseURL),
		redisClient,
		cfg.Exchange.CacheTTL,
	)

	// Job queue and the auto-renewal job
	jobQueue := queue.NewQueue(db, cfg.Queue.PollInterval)
	renewalJob := jobs.NewRenewalJob(jobQueue, subscription.NewService(db))
	renewalJob.Register()
	if err := renewalJob.StartScheduler(); err != nil {
		log.Fatalf("Failed to start renewal scheduler: %v", err)
	}
	go jobQueue.ProcessJobs()

	// Initialize router
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	routes.RegisterRoutes(router, db, rateProvider, cfg)

	log.Printf("Subtrackr API server running on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
