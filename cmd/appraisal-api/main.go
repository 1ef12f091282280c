package main

import (
	"context"
	"errors"
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

	_ "github.com/word-sanctuary/appraisal-api/api/swagger"
	"github.com/word-sanctuary/appraisal-api/internal/handler"
	"github.com/word-sanctuary/appraisal-api/internal/middleware"
	"github.com/word-sanctuary/appraisal-api/internal/models"
	"github.com/word-sanctuary/appraisal-api/internal/repository"
	"github.com/word-sanctuary/appraisal-api/internal/service"
	"github.com/word-sanctuary/appraisal-api/pkg/cache"
	"github.com/word-sanctuary/appraisal-api/pkg/config"
	"github.com/word-sanctuary/appraisal-api/pkg/database"
	"github.com/word-sanctuary/appraisal-api/pkg/export"
	"github.com/word-sanctuary/appraisal-api/pkg/logger"
	corsmiddleware "github.com/word-sanctuary/appraisal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/word-sanctuary/appraisal-api/pkg/middleware/requestid"
	"github.com/word-sanctuary/appraisal-api/pkg/storage"
)

// @title Training Appraisal API
// @version 1.0.0
// @description Role-based training and appraisal management service
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	traineeRepo := repository.NewTraineeRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	authRepo := repository.NewAuthRepository(redisClient)
	formRepo := repository.NewFormRepository(redisClient, logr)
	recommendationRepo := repository.NewRecommendationRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)

	authSvc := service.NewAuthService(userRepo, authRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
		CodeTTL:     cfg.Auth.CodeTTL,
		CodeLength:  cfg.Auth.CodeLength,
		DefaultRole: models.Role(cfg.Auth.DefaultRole),
		DevMode:     cfg.Env != config.EnvProduction,
	})

	traineeSvc := service.NewTraineeService(traineeRepo, recommendationRepo, userRepo, validate, logr)
	recommendationSvc := service.NewRecommendationService(recommendationRepo, traineeRepo, validate, logr)
	appraisalSvc := service.NewAppraisalService(formRepo, traineeRepo, userRepo, validate, logr)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, validate, logr, cfg.Assessments.DefaultTimeLimit).WithMetrics(metricsSvc)
	dashboardSvc := service.NewDashboardService(traineeRepo, formRepo, assessmentRepo, cacheSvc, logr, cfg.Dashboard.CacheTTL)
	userSvc := service.NewUserService(userRepo, validate, logr)

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	reportSvc := service.NewReportService(reportRepo, formRepo, traineeRepo, recommendationRepo,
		export.NewPDFExporter(), store, signer, metricsSvc, logr, service.ReportServiceConfig{
			Enabled:         cfg.Reports.Enabled,
			WorkerCount:     cfg.Reports.WorkerConcurrency,
			MaxRetries:      cfg.Reports.WorkerRetries,
			CleanupInterval: cfg.Reports.CleanupInterval,
		})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportSvc.Start(ctx)
	defer reportSvc.Stop()
	assessmentSvc.StartSweeper(ctx, cfg.Assessments.SweepInterval)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Trainees:    handler.NewTraineeHandler(traineeSvc, recommendationSvc),
		Appraisals:  handler.NewAppraisalHandler(appraisalSvc, dashboardSvc),
		Assessments: handler.NewAssessmentHandler(assessmentSvc),
		Users:       handler.NewUserHandler(userSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Reports:     handler.NewReportHandler(reportSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc),
		AuthService: authSvc,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
