package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safeshipper/hazard-assessment-service/internal/cache"
	"github.com/safeshipper/hazard-assessment-service/internal/config"
	"github.com/safeshipper/hazard-assessment-service/internal/events"
	"github.com/safeshipper/hazard-assessment-service/internal/handlers"
	"github.com/safeshipper/hazard-assessment-service/internal/middleware"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories/postgres"
	"github.com/safeshipper/hazard-assessment-service/internal/services"
	"github.com/safeshipper/hazard-assessment-service/internal/utils"
	"github.com/safeshipper/hazard-assessment-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogLogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := pkg.MigrateDatabase(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(db)
	defer repo.Close()

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	cacheService := cache.NewRedisCache(redisClient, logger)

	publisher, err := cfg.Events.CreateEventPublisher(slogLogger)
	if err != nil {
		logger.Error("Failed to create event publisher, using mock", "error", err)
		publisher = events.NewMockEventPublisher(slogLogger)
	}
	defer publisher.Close()

	validator := utils.NewValidator()

	templateService := services.NewTemplateService(repo, slogLogger, validator)
	assessmentService := services.NewAssessmentService(
		repo, templateService, publisher, slogLogger, validator,
		cfg.Flow.MinSecondsPerQuestion)
	flowService := services.NewFlowService(repo, cacheService, publisher, slogLogger, cfg.Flow)
	exportService := services.NewExportService(repo, slogLogger)

	auth := middleware.NewAuthMiddleware(cfg, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(
		templateService,
		assessmentService,
		flowService,
		exportService,
		auth,
		repo,
		validator,
		logger,
	)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
	logger.Info("Server stopped")
}
