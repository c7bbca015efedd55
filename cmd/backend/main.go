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

	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/auth"
	"NYCU-SDC/survey-backend/internal/cache"
	"NYCU-SDC/survey-backend/internal/config"
	"NYCU-SDC/survey-backend/internal/cors"
	"NYCU-SDC/survey-backend/internal/jwt"
	"NYCU-SDC/survey-backend/internal/metrics"
	"NYCU-SDC/survey-backend/internal/report"
	"NYCU-SDC/survey-backend/internal/response"
	"NYCU-SDC/survey-backend/internal/survey"
	"NYCU-SDC/survey-backend/internal/trace"
	"NYCU-SDC/survey-backend/internal/traversal"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.6.1"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/natefinch/lumberjack.v2"
)

var AppName = "no-app-name"

var Version = "no-version"

var BuildTime = "no-build-time"

var CommitHash = "no-commit-hash"

var Environment = "no-env"

func main() {
	AppName = os.Getenv("APP_NAME")
	if AppName == "" {
		AppName = "survey-backend"
	}

	if BuildTime == "no-build-time" {
		now := time.Now()
		BuildTime = "not provided (now: " + now.Format(time.RFC3339) + ")"
	}

	Environment = os.Getenv("ENV")
	if Environment == "" {
		Environment = "no-env"
	}

	appMetadata := []zap.Field{
		zap.String("app_name", AppName),
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit_hash", CommitHash),
		zap.String("environment", Environment),
	}

	cfg, cfgLog := config.Load()
	err := cfg.Validate()
	if err != nil {
		switch {
		case errors.Is(err, config.ErrDatabaseURLRequired):
			title := "Database URL is required"
			message := "Please set the DATABASE_URL environment variable or provide a config file with the database_url key."
			log.Fatal(EarlyApplicationFailed(title, message))
		case errors.Is(err, config.ErrAdminPasswordRequired):
			title := "Admin password is required"
			message := "Please set the ADMIN_PASSWORD environment variable or provide a config file with the admin_password key."
			log.Fatal(EarlyApplicationFailed(title, message))
		case errors.Is(err, config.ErrInvalidSessionTTL):
			title := "Session TTL must be positive"
			message := "Please set SESSION_TTL (or session_ttl in the config file) to a positive duration such as 30m."
			log.Fatal(EarlyApplicationFailed(title, message))
		default:
			log.Fatalf("Failed to validate config: %v, exiting...", err)
		}
	}

	logger, err := initLogger(&cfg, appMetadata)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v, exiting...", err)
	}

	cfgLog.FlushToZap(logger)

	if cfg.Dev {
		logger.Warn("Running in development mode, make sure to disable it in production")
	}

	if cfg.Secret == config.DefaultSecret && !cfg.Debug {
		logger.Warn("Default secret detected in production environment, replace it with a secure random string")
		cfg.Secret = uuid.New().String()
	}

	logger.Info("Starting application...")

	logger.Info("Starting database migration...")

	err = databaseutil.MigrationUp(cfg.MigrationSource, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to run database migration", zap.Error(err))
	}

	dbPool, err := initDatabasePool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	shutdown, err := initOpenTelemetry(AppName, Version, BuildTime, CommitHash, Environment, cfg.OtelCollectorUrl)
	if err != nil {
		logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}

	// handle interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	definitionCache := initCache(ctx, logger, cfg)
	defer func() {
		if err := definitionCache.Close(); err != nil {
			logger.Warn("Failed to close cache", zap.Error(err))
		}
	}()

	validator := internal.NewValidator()
	problemWriter := internal.NewProblemWriter()
	collector := metrics.NewCollector()

	// ============================================
	// Service
	// ============================================

	jwtService := jwt.NewService(logger, cfg.Secret, cfg.AdminTokenExpiration)
	surveyService := survey.NewService(logger, dbPool, definitionCache, cfg.SurveyCacheTTL, collector)
	responseService := response.NewService(logger, dbPool, collector)
	sessionStore := traversal.NewStore(logger, cfg.SessionTTL)
	traversalService := traversal.NewService(logger, surveyService, responseService, sessionStore, collector)

	go sessionStore.Run(ctx)

	// ============================================
	// Handler
	// ============================================

	authHandler := auth.NewHandler(logger, validator, problemWriter, jwtService, cfg.AdminPassword, cfg.Dev)
	surveyHandler := survey.NewHandler(logger, validator, problemWriter, surveyService)
	responseHandler := response.NewHandler(logger, problemWriter, responseService)
	traversalHandler := traversal.NewHandler(logger, validator, problemWriter, traversalService)
	reportHandler := report.NewHandler(logger, problemWriter, surveyService, responseService)

	// ============================================
	// Middleware
	// ============================================

	traceMiddleware := trace.NewMiddleware(logger, cfg.Debug)
	corsMiddleware := cors.NewMiddleware(logger, cfg.AllowOrigins)
	authenticator := auth.NewMiddleware(logger, problemWriter, jwtService)

	// Basic Middleware (Tracing and Recovery)
	basicMiddleware := middleware.NewSet(traceMiddleware.RecoverMiddleware)
	basicMiddleware = basicMiddleware.Append(traceMiddleware.TraceMiddleware)

	// Admin Middleware
	adminMiddleware := basicMiddleware.Append(authenticator.AuthenticateMiddleware)

	// HTTP Server
	mux := http.NewServeMux()

	// Health check route
	mux.Handle("GET /api/healthz", basicMiddleware.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			logger.Error("Failed to write response", zap.Error(err))
		}
	}))
	mux.Handle("GET /metrics", collector.Handler())

	// ============================================
	// Admin authentication routes
	// ============================================

	mux.Handle("POST /api/auth/login", basicMiddleware.HandlerFunc(authHandler.Login))
	mux.Handle("POST /api/auth/logout", basicMiddleware.HandlerFunc(authHandler.Logout))

	// ============================================
	// Respondent routes
	// ============================================

	// Landing
	// ----------------------
	mux.Handle("GET /api/surveys/active", basicMiddleware.HandlerFunc(surveyHandler.ActiveHandler))

	// Sessions
	// ----------------------
	mux.Handle("POST /api/sessions", basicMiddleware.HandlerFunc(traversalHandler.StartHandler))
	mux.Handle("GET /api/sessions/{sessionId}", basicMiddleware.HandlerFunc(traversalHandler.GetHandler))
	mux.Handle("POST /api/sessions/{sessionId}/answers", basicMiddleware.HandlerFunc(traversalHandler.AnswerHandler))
	mux.Handle("POST /api/sessions/{sessionId}/back", basicMiddleware.HandlerFunc(traversalHandler.BackHandler))
	mux.Handle("DELETE /api/sessions/{sessionId}", basicMiddleware.HandlerFunc(traversalHandler.AbandonHandler))

	// ============================================
	// Admin routes
	// ============================================

	// Survey Management
	// ----------------------
	mux.Handle("GET /api/surveys", adminMiddleware.HandlerFunc(surveyHandler.ListHandler))
	mux.Handle("POST /api/surveys", adminMiddleware.HandlerFunc(surveyHandler.CreateHandler))
	mux.Handle("POST /api/surveys/import", adminMiddleware.HandlerFunc(surveyHandler.ImportHandler))
	mux.Handle("GET /api/surveys/{surveyId}", adminMiddleware.HandlerFunc(surveyHandler.GetHandler))
	mux.Handle("PUT /api/surveys/{surveyId}", adminMiddleware.HandlerFunc(surveyHandler.UpdateHandler))
	mux.Handle("DELETE /api/surveys/{surveyId}", adminMiddleware.HandlerFunc(surveyHandler.DeleteHandler))

	// -- Survey Operations
	mux.Handle("PUT /api/surveys/{surveyId}/status", adminMiddleware.HandlerFunc(surveyHandler.SetStatusHandler))

	// Response Management
	// ----------------------
	mux.Handle("GET /api/surveys/{surveyId}/responses", adminMiddleware.HandlerFunc(responseHandler.ListHandler))
	mux.Handle("GET /api/surveys/{surveyId}/analytics", adminMiddleware.HandlerFunc(reportHandler.AnalyticsHandler))
	mux.Handle("GET /api/surveys/{surveyId}/export", adminMiddleware.HandlerFunc(reportHandler.ExportHandler))

	// End of API routes
	// ============================================

	// CORS and Entry Point
	entrypoint := corsMiddleware.HandlerFunc(mux.ServeHTTP)

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           entrypoint,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting listening request", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Fail to start server with error", zap.Error(err))
		}
	}()

	// wait for context close
	<-ctx.Done()
	logger.Info("Shutting down gracefully...", zap.Int("open_sessions", sessionStore.Len()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := shutdown(otelCtx); err != nil {
		logger.Error("Forced to shutdown OpenTelemetry", zap.Error(err))
	}

	logger.Info("Successfully shutdown")
}

type closableCache interface {
	survey.Cache
	Close() error
}

// initCache falls back to no caching when REDIS_URL is unset or redis is
// unreachable at startup.
func initCache(ctx context.Context, logger *zap.Logger, cfg config.Config) closableCache {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, survey definitions are not cached")
		return cache.Noop{}
	}

	redisCache, err := cache.NewRedisCache(ctx, logger, cfg.RedisURL, cache.Config{
		Prefix:     AppName,
		DefaultTTL: cfg.SurveyCacheTTL,
	})
	if err != nil {
		logger.Warn("Failed to connect to redis, survey definitions are not cached", zap.Error(err))
		return cache.Noop{}
	}
	return redisCache
}

func initLogger(cfg *config.Config, appMetadata []zap.Field) (*zap.Logger, error) {
	var err error
	var logger *zap.Logger
	if cfg.Debug {
		logger, err = logutil.ZapDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		logger.Info("Running in debug mode", appMetadata...)
	} else {
		logger, err = logutil.ZapProductionConfig().Build()
		if err != nil {
			return nil, err
		}

		logger = logger.With(appMetadata...)
	}

	if cfg.LogFile != "" {
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    100,
				MaxBackups: 5,
				MaxAge:     28,
				Compress:   true,
			}),
			logger.Core(),
		)
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	defer func() {
		err := logger.Sync()
		if err != nil {
			zap.S().Errorw("Failed to sync logger", zap.Error(err))
		}
	}()

	return logger, nil
}

func initDatabasePool(databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	return dbPool, nil
}

func initOpenTelemetry(appName, version, buildTime, commitHash, environment, otelCollectorUrl string) (func(context.Context) error, error) {
	ctx := context.Background()

	serviceName := semconv.ServiceNameKey.String(appName)
	serviceVersion := semconv.ServiceVersionKey.String(version)
	serviceNamespace := semconv.ServiceNamespaceKey.String("survey")
	serviceCommitHash := attribute.String("service.commit_hash", commitHash)
	serviceBuildTime := attribute.String("service.build_time", buildTime)
	serviceEnvironment := semconv.DeploymentEnvironmentKey.String(environment)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			serviceName,
			serviceVersion,
			serviceNamespace,
			serviceCommitHash,
			serviceBuildTime,
			serviceEnvironment,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if otelCollectorUrl != "" {
		conn, err := grpc.NewClient(otelCollectorUrl, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}

		traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		options = append(options, sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExporter)))
	}

	tracerProvider := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

func EarlyApplicationFailed(title, action string) string {
	result := `
-----------------------------------------
Application Failed to Start
-----------------------------------------

# What's wrong?
%s

# How to fix it?
%s

`

	return fmt.Sprintf(result, title, action)
}
