package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pilab-dev/betwiz-oauth/cache"
	rediscache "github.com/pilab-dev/betwiz-oauth/cache/redis"
	"github.com/pilab-dev/betwiz-oauth/client"
	"github.com/pilab-dev/betwiz-oauth/config"
	"github.com/pilab-dev/betwiz-oauth/domain"
	"github.com/pilab-dev/betwiz-oauth/internal/audit"
	"github.com/pilab-dev/betwiz-oauth/internal/auth"
	"github.com/pilab-dev/betwiz-oauth/internal/metrics"
	"github.com/pilab-dev/betwiz-oauth/internal/server"
	"github.com/pilab-dev/betwiz-oauth/internal/storage"
	"github.com/pilab-dev/betwiz-oauth/log"
	"github.com/pilab-dev/betwiz-oauth/middleware"
	"github.com/pilab-dev/betwiz-oauth/mongodb"
	"github.com/pilab-dev/betwiz-oauth/services"
	"github.com/pilab-dev/betwiz-oauth/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/pilab-dev/betwiz-oauth/api/echo"
)

func main() {
	configFile := os.Getenv("BETWIZ_CONFIG_FILE")

	// Load configuration first
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	appLogger := log.NewZerologAdapter(log.ParseLevel(cfg.LogLevel), cfg.LogPretty)
	ctx := context.Background()

	appLogger.Info(ctx, "Starting betwiz-oauth server...", log.Fields{
		"http_addr":     cfg.HTTPAddr,
		"mongo_db_name": cfg.MongoDBName,
		"auth_codes":    cfg.Storage.AuthCodes,
		"log_level":     cfg.LogLevel,
		"otel_service":  cfg.OtelServiceName,
	})

	var shutdownTracer func(context.Context) error
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
		}
		shutdownTracer = tp.Shutdown
		appLogger.Info(ctx, "TracerProvider initialized.")
	}

	// --- Initialize Dependencies ---
	mongoClient, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", err)
	}

	clientRepo, err := mongodb.NewClientRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize ClientRepository", err)
	}

	userRepo, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize UserRepository", err)
	}

	healthChecks := map[string]echoapi.HealthCheck{
		"mongodb": func(ctx context.Context) error { return mongodb.Ping(ctx, mongoClient) },
	}

	codeRepo, closeCodes, err := newAuthCodeStore(ctx, cfg, db, healthChecks)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize auth code store", err, log.Fields{"backend": cfg.Storage.AuthCodes})
	}

	var verifier client.SecretVerifier = client.PlainSecretVerifier{}
	if cfg.OAuth.ClientSecretHashing == "bcrypt" {
		verifier = auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(reg)

	serviceOpts := []services.Option{
		services.WithMetrics(appMetrics),
		services.WithRefreshScope(cfg.OAuth.RefreshScope),
	}
	if cfg.AuditLog {
		serviceOpts = append(serviceOpts, services.WithAuditLogger(audit.New(os.Stdout, cfg.OtelServiceName)))
	}

	oauthSvc := services.NewOAuthService(
		client.NewClientService(clientRepo, verifier),
		codeRepo,
		userRepo,
		appLogger,
		serviceOpts...,
	)

	sessions := middleware.NewSessionAuthenticator(cfg.JWTSecret, userRepo)
	oauthAPI := echoapi.NewOAuth2API(oauthSvc, sessions, echoapi.Options{
		LoginURL:     cfg.OAuth.LoginURL,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HealthChecks: healthChecks,
	})
	// --- End Dependency Initialization ---

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	sweeper := services.NewSweeper(codeRepo, cfg.SweepInterval, appLogger, appMetrics)
	go sweeper.Run(sweepCtx)

	httpServer := server.NewHTTPServer(cfg, appLogger, oauthAPI)
	go func() {
		appLogger.Info(ctx, fmt.Sprintf("HTTP server listening on %s", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(ctx, "Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	appLogger.Info(ctx, fmt.Sprintf("Received signal: %v. Shutting down server...", receivedSignal))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}

	stopSweeper()

	if closeCodes != nil {
		if err := closeCodes.Close(); err != nil {
			appLogger.Error(shutdownCtx, "Auth code store close error", err)
		}
	}

	if shutdownTracer != nil {
		if err := shutdownTracer(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
		}
	}

	mongodb.Close(shutdownCtx, mongoClient)

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}

// newAuthCodeStore builds the backend selected by storage.auth_codes. The
// returned closer is nil when the store shares the MongoDB connection.
func newAuthCodeStore(
	ctx context.Context,
	cfg *config.ServerConfig,
	db *mongo.Database,
	healthChecks map[string]echoapi.HealthCheck,
) (domain.AuthCodeRepository, io.Closer, error) {
	switch cfg.Storage.AuthCodes {
	case config.StoreMemory:
		store := cache.NewMemoryAuthCodeStore()
		return store, store, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := rediscache.NewAuthCodeStore(rdb, cfg.RedisPrefix)
		if err := store.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		healthChecks["redis"] = store.Ping

		return store, rdb, nil

	case config.StoreBBolt:
		store, err := storage.NewBBoltAuthCodeStore(cfg.BBoltPath)
		if err != nil {
			return nil, nil, err
		}

		return store, store, nil

	default:
		repo, err := mongodb.NewAuthCodeRepository(ctx, db)
		return repo, nil, err
	}
}
