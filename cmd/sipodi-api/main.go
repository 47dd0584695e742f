package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sipodi-api/api/swagger"
	"github.com/noah-isme/sipodi-api/internal/handler"
	"github.com/noah-isme/sipodi-api/internal/repository"
	"github.com/noah-isme/sipodi-api/internal/router"
	"github.com/noah-isme/sipodi-api/internal/service"
	"github.com/noah-isme/sipodi-api/pkg/cache"
	"github.com/noah-isme/sipodi-api/pkg/config"
	"github.com/noah-isme/sipodi-api/pkg/database"
	"github.com/noah-isme/sipodi-api/pkg/export"
	"github.com/noah-isme/sipodi-api/pkg/jobs"
	"github.com/noah-isme/sipodi-api/pkg/logger"
	"github.com/noah-isme/sipodi-api/pkg/storage"
)

// @title SIPODI API
// @version 1.0.0
// @description Talent submission and verification service for school personnel (GTK)
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	sweepInterval = 10 * time.Minute
	purgeInterval = time.Hour
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	store, err := storage.NewS3Store(ctx, cfg.Storage, logr)
	if err != nil {
		logr.Fatal("failed to init object storage", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	tokens := repository.NewTokenRepository(db)
	audits := repository.NewAuditRepository(db)
	schools := repository.NewSchoolRepository(db)
	talents := repository.NewTalentRepository(db)
	events := repository.NewTalentEventRepository(db)
	notifications := repository.NewNotificationRepository(db)
	dashboards := repository.NewDashboardRepository(db)
	exports := repository.NewExportRepository(db)
	sessions := repository.NewUploadSessionRepository(rdb)
	cacheRepo := repository.NewCacheRepository(rdb, logr)

	validate := service.NewValidator()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	mux := jobs.NewMux()
	queue := jobs.NewQueue("background", mux.Process, jobs.QueueConfig{
		Workers:    cfg.Uploads.CleanupWorkers,
		MaxRetries: cfg.Uploads.CleanupRetries,
		Logger:     logr,
	})

	authSvc := service.NewAuthService(users, tokens, audits, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.AccessExpiry,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiry,
		Issuer:             cfg.JWT.Issuer,
	})
	uploadSvc := service.NewUploadService(sessions, store, queue, metrics, validate, logr, service.UploadServiceConfig{
		PresignExpiry: cfg.Uploads.PresignExpiry,
		AttachWindow:  cfg.Uploads.AttachWindow,
	})
	notificationSvc := service.NewNotificationService(notifications, queue, logr)
	talentSvc := service.NewTalentService(service.TalentServiceParams{
		Repo:      talents,
		Events:    events,
		Uploads:   uploadSvc,
		Notifier:  notificationSvc,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	userSvc := service.NewUserService(users, schools, uploadSvc, audits, validate, logr)
	schoolSvc := service.NewSchoolService(schools, users, audits, cacheSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Repo:          dashboards,
		Talents:       talents,
		Schools:       schools,
		Notifications: notifications,
		Cache:         cacheSvc,
		Logger:        logr,
		Config:        service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	exportSvc := service.NewExportService(exports, dashboardSvc, audits, service.ExportConfig{MaxRows: cfg.Exports.MaxRows}, logr, export.NewCSVExporter(export.WithDelimiter(cfg.Exports.CSVDelimiter)), export.NewPDFExporter())

	service.RegisterJobHandlers(mux, metrics, uploadSvc, notificationSvc)
	queue.Start(ctx)
	defer queue.Stop()

	go uploadSvc.RunSweeper(ctx, sweepInterval)
	go purgeTokens(ctx, authSvc, logr)

	engine := router.New(router.Options{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Tokens:         authSvc,
		Audit:          audits,
		Observer:       metrics,
		Logger:         logr,
	}, router.Handlers{
		Auth: handler.NewAuthHandler(authSvc, handler.RefreshCookie{
			Name:   cfg.Cookie.Name,
			Path:   cfg.Cookie.Path,
			Domain: cfg.Cookie.Domain,
			Secure: cfg.Cookie.Secure,
		}),
		Users:         handler.NewUserHandler(userSvc),
		Schools:       handler.NewSchoolHandler(schoolSvc),
		Talents:       handler.NewTalentHandler(talentSvc),
		Uploads:       handler.NewUploadHandler(uploadSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Exports:       handler.NewExportHandler(exportSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"postgres": db.PingContext,
			"redis":    cacheRepo.Ping,
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func purgeTokens(ctx context.Context, auth *service.AuthService, logr *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := auth.PurgeExpiredTokens(ctx)
			if err != nil {
				logr.Warn("failed to purge refresh tokens", zap.Error(err))
				continue
			}
			if purged > 0 {
				logr.Info("purged expired refresh tokens", zap.Int64("count", purged))
			}
		}
	}
}
