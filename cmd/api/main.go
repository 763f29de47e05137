package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/parishhub/chms-api/api/swagger"
	"github.com/parishhub/chms-api/internal/handler"
	"github.com/parishhub/chms-api/internal/middleware"
	"github.com/parishhub/chms-api/internal/models"
	"github.com/parishhub/chms-api/internal/repository"
	"github.com/parishhub/chms-api/internal/service"
	"github.com/parishhub/chms-api/pkg/cache"
	"github.com/parishhub/chms-api/pkg/config"
	"github.com/parishhub/chms-api/pkg/database"
	"github.com/parishhub/chms-api/pkg/export"
	"github.com/parishhub/chms-api/pkg/jobs"
	"github.com/parishhub/chms-api/pkg/logger"
	"github.com/parishhub/chms-api/pkg/mailer"
	corsmiddleware "github.com/parishhub/chms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/parishhub/chms-api/pkg/middleware/requestid"
	"github.com/parishhub/chms-api/pkg/storage"
)

// @title ParishHub ChMS API
// @version 1.0.0
// @description Church management API: ministries, members, shift rotation, events, tasks, inventory.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()
	mail := mailer.NewSMTPMailer(cfg.SMTP, logr)

	userRepo := repository.NewUserRepository(db)
	ministryRepo := repository.NewMinistryRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	eventRepo := repository.NewEventRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cardHandler := service.NewCardJobHandler(export.NewMemberCardExporter(), exportStore, logr)
	cardQueue := jobs.NewQueue("member_cards", cardHandler, jobs.QueueConfig{
		Workers:    cfg.Imports.CardWorkers,
		MaxRetries: cfg.Imports.CardRetries,
		Logger:     logr,
	})
	cardQueue.Start(ctx)
	defer cardQueue.Stop()

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "parishhub-chms",
		Audience:           []string{"parishhub-admin"},
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	ministrySvc := service.NewMinistryService(ministryRepo, cacheRepo, validate, logr)
	memberSvc := service.NewMemberService(memberRepo, ministryRepo, userRepo, validate, logr)
	shiftSvc := service.NewShiftService(shiftRepo, ministryRepo, memberRepo, validate, logr)
	rotationSvc := service.NewRotationService(ministryRepo, memberRepo, shiftRepo, mail, cfg.Rotation, validate, logr)
	eventSvc := service.NewEventService(eventRepo, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, validate, logr)
	inventorySvc := service.NewInventoryService(inventoryRepo, validate, logr)
	settingSvc := service.NewSettingService(settingRepo, cacheRepo, cfg.Settings.CacheTTL, validate, logr)
	dashboardSvc := service.NewDashboardService(memberRepo, ministryRepo, eventRepo, taskRepo, shiftRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)
	importSvc := service.NewImportService(userRepo, memberRepo, ministryRepo, cardQueue, logr)
	exportSvc := service.NewExportService(memberRepo, shiftRepo, ministryRepo, exportStore, signer, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	ministryHandler := handler.NewMinistryHandler(ministrySvc)
	memberHandler := handler.NewMemberHandler(memberSvc)
	shiftHandler := handler.NewShiftHandler(shiftSvc, rotationSvc, metricsSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)
	inventoryHandler := handler.NewInventoryHandler(inventorySvc)
	settingHandler := handler.NewSettingHandler(settingSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	importHandler := handler.NewImportHandler(importSvc, cfg.Imports.MaxFileSizeBytes)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Download links are pre-signed; the token is the credential.
	api.GET("/exports/download", exportHandler.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	adminOnly := middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin))
	staffUp := middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), string(models.RoleStaff))

	users := protected.Group("/users")
	{
		users.GET("", adminOnly, userHandler.List)
		users.POST("", adminOnly, userHandler.Create)
		users.GET("/:id", middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), "SELF"), userHandler.Get)
		users.PUT("/:id", adminOnly, userHandler.Update)
		users.DELETE("/:id", adminOnly, userHandler.Deactivate)
	}

	ministries := protected.Group("/ministries")
	{
		ministries.GET("", ministryHandler.List)
		ministries.GET("/:id", ministryHandler.Get)
		ministries.POST("", adminOnly, ministryHandler.Create)
		ministries.PUT("/:id", adminOnly, ministryHandler.Update)
		ministries.DELETE("/:id", adminOnly, ministryHandler.Delete)

		ministries.GET("/:id/members", memberHandler.List)
		ministries.POST("/:id/members", staffUp, memberHandler.Add)
		ministries.POST("/:id/members/import", staffUp, middleware.Audit(userRepo, models.AuditActionImport, "ministry_members"), importHandler.ImportMembers)

		ministries.GET("/:id/shifts", shiftHandler.List)
		ministries.POST("/:id/shifts", staffUp, shiftHandler.CreateGroup)
		ministries.DELETE("/:id/shifts", staffUp, shiftHandler.DeleteGroup)
		ministries.POST("/:id/shifts/rotate", staffUp, middleware.Audit(userRepo, models.AuditActionRotate, "shifts"), shiftHandler.RotateMinistry)
	}

	members := protected.Group("/members")
	{
		members.GET("/:memberId", memberHandler.Get)
		members.PUT("/:memberId", staffUp, memberHandler.Update)
		members.DELETE("/:memberId", staffUp, memberHandler.Remove)
	}

	shifts := protected.Group("/shifts")
	{
		shifts.POST("/rotate", staffUp, middleware.Audit(userRepo, models.AuditActionRotate, "shifts"), shiftHandler.Rotate)
		shifts.GET("/:shiftId", shiftHandler.Get)
		shifts.POST("/:shiftId/assign", staffUp, shiftHandler.Assign)
		shifts.POST("/:shiftId/unassign", staffUp, shiftHandler.Unassign)
		shifts.DELETE("/:shiftId", staffUp, shiftHandler.Delete)
	}

	events := protected.Group("/events")
	{
		events.GET("", eventHandler.List)
		events.GET("/:id", eventHandler.Get)
		events.GET("/:id/occurrences", eventHandler.Occurrences)
		events.POST("", staffUp, eventHandler.Create)
		events.PUT("/:id", staffUp, eventHandler.Update)
		events.DELETE("/:id", staffUp, eventHandler.Delete)
		events.POST("/:id/register", eventHandler.Register)
		events.DELETE("/:id/register", eventHandler.Unregister)
	}

	tasks := protected.Group("/tasks")
	{
		tasks.GET("", taskHandler.List)
		tasks.GET("/:id", taskHandler.Get)
		tasks.POST("", staffUp, taskHandler.Create)
		tasks.PUT("/:id", staffUp, taskHandler.Update)
		tasks.POST("/:id/complete", staffUp, taskHandler.Complete)
		tasks.DELETE("/:id", staffUp, taskHandler.Delete)
	}

	inventory := protected.Group("/inventory")
	{
		inventory.GET("", inventoryHandler.List)
		inventory.GET("/:id", inventoryHandler.Get)
		inventory.POST("", staffUp, inventoryHandler.Create)
		inventory.PUT("/:id", staffUp, inventoryHandler.Update)
		inventory.POST("/:id/adjust", staffUp, inventoryHandler.Adjust)
		inventory.DELETE("/:id", staffUp, inventoryHandler.Delete)
	}

	settings := protected.Group("/settings")
	{
		settings.GET("", staffUp, settingHandler.List)
		settings.GET("/:key", staffUp, settingHandler.Get)
		settings.PUT("/:key", adminOnly, settingHandler.Put)
	}

	protected.GET("/dashboard", staffUp, dashboardHandler.Overview)
	protected.POST("/exports", staffUp, exportHandler.Generate)

	go cleanupExports(ctx, exportStore, cfg.Exports, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}

// cleanupExports periodically removes export files older than the signed
// URL TTL so dead download links do not accumulate on disk.
func cleanupExports(ctx context.Context, store *storage.LocalStorage, cfg config.ExportsConfig, logr *zap.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupOlderThan(cfg.SignedURLTTL)
			if err != nil {
				logr.Sugar().Warnw("export cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("export cleanup", "removed", len(removed))
			}
		}
	}
}
