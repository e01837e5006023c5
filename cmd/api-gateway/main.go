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

	_ "github.com/hostelhub/hostel-adm-api/api/swagger"
	"github.com/hostelhub/hostel-adm-api/internal/handler"
	"github.com/hostelhub/hostel-adm-api/internal/repository"
	"github.com/hostelhub/hostel-adm-api/internal/service"
	"github.com/hostelhub/hostel-adm-api/pkg/cache"
	"github.com/hostelhub/hostel-adm-api/pkg/config"
	"github.com/hostelhub/hostel-adm-api/pkg/database"
	"github.com/hostelhub/hostel-adm-api/pkg/jobs"
	"github.com/hostelhub/hostel-adm-api/pkg/logger"
	corsmiddleware "github.com/hostelhub/hostel-adm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hostelhub/hostel-adm-api/pkg/middleware/requestid"
	"github.com/hostelhub/hostel-adm-api/pkg/storage"
)

// @title Hostel ADM API
// @version 0.1.0
// @description Hostel administration backend: students, rooms, allocation, fees
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	hostelRepo := repository.NewHostelRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "hostel-adm-api",
		Audience:           []string{"hostel-adm"},
		SingleSession:      cfg.JWT.SingleSession,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, validate, logr)
	roomService := service.NewRoomService(roomRepo, hostelRepo, userRepo, validate, logr)
	hostelService := service.NewHostelService(hostelRepo, userRepo, validate, logr)
	allocationService := service.NewAllocationService(allocationRepo, studentRepo, userRepo, cacheService, logr)
	applicationService := service.NewApplicationService(applicationRepo, studentRepo, hostelRepo, validate, logr)
	complaintService := service.NewComplaintService(complaintRepo, studentRepo, validate, logr)
	noticeService := service.NewNoticeService(noticeRepo, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, validate, logr)
	leaveService := service.NewLeaveService(leaveRepo, studentRepo, validate, logr)
	dashboardService := service.NewDashboardService(dashboardRepo, cacheService, metricsService, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var feeService *service.FeeService
	var statementQueue *jobs.Queue

	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init statement storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exporter := service.NewStatementExportService(feeRepo, studentRepo, store, signer, service.StatementExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)

		statementQueue = jobs.NewQueue("statements", func(jobCtx context.Context, job jobs.Job) error {
			return feeService.ProcessStatementJob(jobCtx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})

		feeService = service.NewFeeService(feeRepo, studentRepo, exporter, statementQueue, validate, logr)

		statementQueue.Start(ctx)
		if err := feeService.RecoverQueuedStatements(ctx); err != nil {
			logr.Sugar().Warnw("failed to recover queued statements", "error", err)
		}
		feeService.StartCleanup(time.Hour, cfg.Reports.SignedURLTTL)
	} else {
		feeService = service.NewFeeService(feeRepo, studentRepo, nil, nil, validate, logr)
	}

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Users:        handler.NewUserHandler(userService),
		Students:     handler.NewStudentHandler(studentService, allocationService),
		Hostels:      handler.NewHostelHandler(hostelService),
		Rooms:        handler.NewRoomHandler(roomService),
		Applications: handler.NewApplicationHandler(applicationService),
		Complaints:   handler.NewComplaintHandler(complaintService),
		Notices:      handler.NewNoticeHandler(noticeService),
		Fees:         handler.NewFeeHandler(feeService),
		Attendance:   handler.NewAttendanceHandler(attendanceService),
		Leaves:       handler.NewLeaveHandler(leaveService),
		Dashboard:    handler.NewDashboardHandler(dashboardService),
		Metrics:      handler.NewMetricsHandler(metricsService),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authService, metricsService, userRepo)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	if statementQueue != nil {
		feeService.StopCleanup()
		statementQueue.Stop()
	}
}
