package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/classroom-schedule-api/api/swagger"
	"github.com/noah-isme/classroom-schedule-api/internal/handler"
	"github.com/noah-isme/classroom-schedule-api/internal/middleware"
	"github.com/noah-isme/classroom-schedule-api/internal/repository"
	"github.com/noah-isme/classroom-schedule-api/internal/service"
	"github.com/noah-isme/classroom-schedule-api/migrations"
	"github.com/noah-isme/classroom-schedule-api/pkg/cache"
	"github.com/noah-isme/classroom-schedule-api/pkg/config"
	"github.com/noah-isme/classroom-schedule-api/pkg/database"
	"github.com/noah-isme/classroom-schedule-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-schedule-api/pkg/middleware/requestid"
)

// @title Classroom Schedule API
// @version 1.0.0
// @description Classroom schedule conflict and query engine
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := migrations.Up(db.DB); err != nil {
		sugar.Fatalw("failed to run migrations", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			sugar.Warnw("redis unavailable, running without query cache", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	scheduleRepo := repository.NewScheduleRepository(db)
	validate := validator.New()

	scheduleSvc := service.NewScheduleService(scheduleRepo, cacheSvc, validate, logr, cfg.Schedule.WriteRetries)
	querySvc := service.NewQueryService(scheduleRepo, cacheSvc, metricsSvc, logr)
	exportSvc := service.NewExportService(scheduleSvc, logr)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	queryHandler := handler.NewQueryHandler(querySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	guard := middleware.Guard(cfg.JWT.Secret)

	schedules := r.Group("/schedules")
	{
		schedules.GET("", scheduleHandler.List)
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.GET("/:id/timetable", scheduleHandler.Timetable)
		if cfg.Export.Enabled {
			schedules.GET("/:id/export", exportHandler.Timetable)
		}

		schedules.POST("", guard, scheduleHandler.Create)
		schedules.PUT("/:id", guard, scheduleHandler.Update)
		schedules.DELETE("/:id", guard, scheduleHandler.Delete)
		schedules.POST("/:id/slots", guard, scheduleHandler.AddSlots)
		schedules.PUT("/:id/slots", guard, scheduleHandler.UpdateSlot)
		schedules.DELETE("/:id/slots", guard, scheduleHandler.RemoveSlot)
	}

	queries := r.Group("/schedule-queries")
	{
		queries.GET("/day/:day", queryHandler.ByDay)
		queries.GET("/overlap", queryHandler.Overlap)
		queries.GET("/conflicts", queryHandler.Conflicts)
		queries.GET("/starting-before", queryHandler.StartingBefore)
		queries.GET("/ending-after", queryHandler.EndingAfter)
		queries.GET("/slot-count/:count", queryHandler.BySlotCount)
		queries.GET("/single-day", queryHandler.SingleDay)
		queries.GET("/multi-day", queryHandler.MultiDay)
		queries.GET("/weekday", queryHandler.Weekday)
		queries.GET("/weekend", queryHandler.Weekend)
		queries.GET("/min-duration/:minutes", queryHandler.MinDuration)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	sugar.Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		sugar.Fatalw("server failed", "error", err)
	}
}
