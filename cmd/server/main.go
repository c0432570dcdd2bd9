package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawpost-backend/internal/attachment"
	"pawpost-backend/internal/auth"
	"pawpost-backend/internal/chat"
	"pawpost-backend/internal/config"
	"pawpost-backend/internal/logging"
	"pawpost-backend/internal/messaging"
	"pawpost-backend/internal/middleware"
	"pawpost-backend/internal/presence"
	"pawpost-backend/internal/store"
	"pawpost-backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig(".env")
	if config.Cfg == nil {
		log.Fatal("Error: Configuration not loaded.")
	}

	logger, err := logging.New(config.Cfg.LogLevel, config.Cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Unable to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("PawPost messaging backend starting",
		zap.String("port", config.Cfg.ServerPort),
		zap.String("dbHost", config.GetDBHost(config.Cfg.DatabaseURL)),
		zap.String("env", config.Cfg.Environment))

	ctx := context.Background()

	var dataStore store.Store
	if config.Cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is empty, using the in-memory store; data is lost on restart")
		dataStore = store.NewMemoryStore()
	} else {
		dbpool, err := pgxpool.New(ctx, config.Cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("unable to create connection pool", zap.Error(err))
		}
		defer dbpool.Close()

		if err := dbpool.Ping(ctx); err != nil {
			logger.Fatal("unable to connect to database", zap.Error(err))
		}
		logger.Info("connected to the database")

		pgStore := store.NewPostgresStore(dbpool)
		if config.Cfg.AutoMigrate {
			if err := pgStore.Migrate(ctx); err != nil {
				logger.Fatal("database migration failed", zap.Error(err))
			}
			logger.Info("database schema is up to date")
		}
		dataStore = pgStore
	}

	var tracker presence.Tracker
	if config.Cfg.RedisURL == "" {
		tracker = presence.NewMemoryTracker(config.Cfg.PresenceTTL)
	} else {
		rdb, err := presence.NewRedisClient(ctx, config.Cfg.RedisURL)
		if err != nil {
			logger.Fatal("unable to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		tracker = presence.NewRedisTracker(rdb, config.Cfg.PresenceTTL)
		logger.Info("presence backed by redis")
	}

	svc := messaging.NewService(dataStore, tracker, logger, messaging.Options{
		RecallWindow: config.Cfg.RecallWindow,
	})
	if err := svc.Rebuild(ctx); err != nil {
		logger.Fatal("failed to build the conversation index", zap.Error(err))
	}

	authHandler := auth.NewAuthHandler(dataStore, logger)
	userHandler := user.NewUserHandler(dataStore, tracker, logger)
	chatRestHandler := chat.NewRestHandler(svc, logger)
	uploadHandler := attachment.NewUploadHandler(
		attachment.NewLocalStorage(config.Cfg.UploadDir, config.Cfg.UploadBaseURL),
		config.Cfg.UploadMaxBytes,
		logger,
	)
	if config.Cfg.SystemAPIKey == "" {
		logger.Warn("SYSTEM_API_KEY is empty, system messages are disabled")
	}

	if config.Cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.Use(logging.RequestLogger(logger))
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = config.Cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.SystemKeyHeader}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	r.Static("/uploads", config.Cfg.UploadDir)

	apiV1 := r.Group("/api/v1")
	{
		publicAuthRoutes := apiV1.Group("/auth")
		{
			publicAuthRoutes.POST("/register", authHandler.Register)
			publicAuthRoutes.POST("/login", authHandler.Login)
		}

		protected := apiV1.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/auth/me", authHandler.GetMe)
			protected.GET("/users/:id", userHandler.GetUserByID)
			protected.GET("/users", userHandler.SearchUsers)
			protected.POST("/presence/heartbeat", userHandler.Heartbeat)
			protected.POST("/upload/:category", uploadHandler.UploadFile)
		}
		chatRestHandler.RegisterRoutes(apiV1, protected, config.Cfg.SystemAPIKey)
	}

	srv := &http.Server{
		Addr:              ":" + config.Cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening and serving HTTP", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
