package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/school-hub-api/api/swagger"
	"github.com/noah-isme/school-hub-api/internal/handler"
	"github.com/noah-isme/school-hub-api/internal/middleware"
	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/internal/repository"
	"github.com/noah-isme/school-hub-api/internal/service"
	"github.com/noah-isme/school-hub-api/pkg/cache"
	"github.com/noah-isme/school-hub-api/pkg/config"
	"github.com/noah-isme/school-hub-api/pkg/database"
	"github.com/noah-isme/school-hub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-hub-api/pkg/middleware/requestid"
)

// @title School Hub API
// @version 1.0.0
// @description Timetable, calendar, announcements and directory backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	dataset, err := repository.NewDatasetRepository(cfg.Timetable.DataDir, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to load timetable dataset", "error", err)
	}

	matchMode := models.TagMatchInclusive
	if cfg.Timetable.StrictTagMatch {
		matchMode = models.TagMatchStrict
	}

	userRepo := repository.NewUserRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled)
	timetableSvc := service.NewTimetableService(dataset, matchMode, logr)
	calendarSvc := service.NewCalendarService(dataset, matchMode, cfg.Timetable.CalendarRoomFilter, logr)
	exportSvc := service.NewExportService(timetableSvc, calendarSvc, logr, nil, nil)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	peopleSvc := service.NewPeopleService(userRepo, dataset, matchMode, nil, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	scheduleHandler := handler.NewScheduleHandler(timetableSvc, exportSvc, peopleSvc, cacheSvc, cfg.Timetable.DefaultClass, logr)
	calendarHandler := handler.NewCalendarHandler(calendarSvc, timetableSvc, exportSvc, peopleSvc, cacheSvc, cfg.Timetable.DefaultClass, logr)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc)
	peopleHandler := handler.NewPeopleHandler(peopleSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/oauth/upsert", middleware.InternalSecret(cfg.Auth.InternalSecret), authHandler.UpsertOAuthUser)
	auth.POST("/login", authHandler.Login)
	auth.GET("/permissions", middleware.JWT(authSvc), authHandler.Permissions)

	schedule := api.Group("/schedule")
	schedule.Use(middleware.OptionalJWT(authSvc))
	schedule.GET("/slots", scheduleHandler.Slots)
	schedule.GET("/timetable", scheduleHandler.Timetable)
	schedule.GET("/timetable/dated", scheduleHandler.TimetableDated)
	schedule.GET("/timetable/export", scheduleHandler.ExportTimetable)

	calendar := api.Group("/calendar")
	calendar.Use(middleware.OptionalJWT(authSvc))
	calendar.GET("/academic", calendarHandler.Academic)
	calendar.GET("/personal", calendarHandler.Personal)
	calendar.GET("/export", calendarHandler.Export)

	announcements := api.Group("/announcements")
	announcements.GET("", announcementHandler.List)
	announcements.GET("/:id", announcementHandler.Get)
	announcements.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), announcementHandler.Create)
	announcements.PATCH("/:id", middleware.JWT(authSvc), announcementHandler.Update)
	announcements.DELETE("/:id", middleware.JWT(authSvc), announcementHandler.Delete)

	people := api.Group("/people")
	people.GET("/grades", peopleHandler.Grades)
	people.GET("/classes", peopleHandler.Classes)
	people.GET("", middleware.JWT(authSvc), peopleHandler.List)
	people.GET("/by-tags", middleware.JWT(authSvc), peopleHandler.ListByTags)
	people.GET("/:id", middleware.JWT(authSvc), peopleHandler.Get)
	people.PATCH("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), peopleHandler.Update)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
