package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"

	"day-planner/backend/internal/ai"
	"day-planner/backend/internal/cloud"
	"day-planner/backend/internal/config"
	"day-planner/backend/internal/handlers"
	"day-planner/backend/internal/localstore"
	"day-planner/backend/internal/middleware"
	"day-planner/backend/internal/models"
	"day-planner/backend/internal/monitoring"
	"day-planner/backend/internal/store"
	syncq "day-planner/backend/internal/sync"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	local, err := localstore.Open(cfg.Database.Driver, cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to open local snapshot store: %v", err)
	}
	defer local.Close()

	cloudClient := cloud.NewClient(cfg.Cloud.BaseURL, cfg.Cloud.APIKey, cfg.Cloud.Timeout)
	if !cloudClient.Available() {
		log.Println("No cloud credential configured; running local-only")
	}

	// Without redis the dispatcher runs each save on a detached
	// goroutine, so a missing queue never blocks startup.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Redis unreachable, falling back to inline dispatch: %v", err)
			redisClient.Close()
			redisClient = nil
		}
		cancel()
	}

	dispatcher := syncq.NewDispatcher(redisClient, cloudClient)
	dispatcher.Start()
	defer dispatcher.Stop()

	taskStore := store.NewTaskStore(local, cloudClient, dispatcher)
	if cfg.SeedDemo {
		taskStore.SeedIfEmpty(demoTasks())
	}

	enhancer := ai.NewEnhancer(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Candidates, cfg.AI.Timeout)

	monitoring.RegisterHealthCheck("localstore", func(ctx context.Context) error {
		return local.Health()
	})
	monitoring.RegisterHealthCheck("cloud", cloudClient.Health)
	if redisClient != nil {
		monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router := setupRouter(cfg, taskStore, enhancer)

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Day planner listening on %s", cfg.GetServerAddr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}

func setupRouter(cfg *config.Config, taskStore store.Service, enhancer *ai.Enhancer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(monitoring.MetricsMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstSize,
			cfg.RateLimit.CleanupInterval,
		)
		router.Use(limiter.Middleware())
	}

	taskHandler := handlers.NewTaskHandler(taskStore)
	authHandler := handlers.NewAuthHandler(taskStore, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	aiHandler := handlers.NewAIHandler(enhancer)

	router.GET("/health", monitoring.HealthHandler)
	router.GET("/metrics", monitoring.MetricsHandler)

	auth := router.Group("/auth")
	{
		auth.POST("/signin", authHandler.SignIn)
		auth.POST("/signout", authHandler.SignOut)
		auth.GET("/session", authHandler.GetSession)
	}

	router.GET("/tasks", taskHandler.GetTasks)
	router.GET("/stats", taskHandler.GetStats)

	// Signed out, the single local user mutates freely; once a session
	// exists, mutations must carry its bearer token.
	sessionGuard := conditionalSession(cfg.Auth.JWTSecret, taskStore)
	mutating := router.Group("/tasks", sessionGuard)
	{
		mutating.POST("", taskHandler.CreateTask)
		mutating.PUT("/:id", taskHandler.UpdateTask)
		mutating.DELETE("/:id", taskHandler.DeleteTask)
		mutating.POST("/:id/toggle", taskHandler.ToggleTask)
	}

	aiGroup := router.Group("/ai")
	{
		aiGroup.POST("/enhance", aiHandler.Enhance)
		aiGroup.POST("/generate", aiHandler.Generate)
		aiGroup.GET("/status", aiHandler.Status)
	}

	return router
}

func conditionalSession(secret string, taskStore store.Service) gin.HandlerFunc {
	validate := middleware.SessionMiddleware(secret)
	return func(c *gin.Context) {
		if taskStore.Session() == nil {
			c.Next()
			return
		}
		validate(c)
	}
}

// demoTasks mirrors the starter collection a fresh install ships with.
func demoTasks() []models.Task {
	today := time.Now().Format("2006-01-02")
	return []models.Task{
		{
			ID:          uuid.Must(uuid.NewV4()).String(),
			Title:       "Learn Javascript",
			Description: "Master the language powering the modern web.",
			StartDate:   "2023-07-07",
			Priority:    models.PriorityHigh,
			Category:    models.CategoryLearning,
		},
		{
			ID:          uuid.Must(uuid.NewV4()).String(),
			Title:       "Learn React",
			Description: "Build interactive UIs with the popular library.",
			StartDate:   "2023-07-08",
			Priority:    models.PriorityHigh,
			Category:    models.CategoryLearning,
		},
		{
			ID:          uuid.Must(uuid.NewV4()).String(),
			Title:       "Build a project",
			Description: "Apply skills to create a real-world app.",
			StartDate:   today,
			Completed:   true,
			Priority:    models.PriorityMedium,
			Category:    models.CategoryWork,
		},
		{
			ID:          uuid.Must(uuid.NewV4()).String(),
			Title:       "Go for a run",
			Description: "Morning jog in the park for 30 minutes.",
			StartDate:   today,
			Completed:   true,
			Priority:    models.PriorityLow,
			Category:    models.CategoryPersonal,
		},
	}
}
