package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/verihire/onboard/internal"
	"github.com/verihire/onboard/internal/events"
	"github.com/verihire/onboard/internal/handler"
	"github.com/verihire/onboard/internal/middleware"
	"github.com/verihire/onboard/internal/onboarding"
	"github.com/verihire/onboard/internal/postgres"
	"github.com/verihire/onboard/internal/registration"
	"github.com/verihire/onboard/internal/router"
	"github.com/verihire/onboard/internal/session"
	"github.com/verihire/onboard/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize completed-signup vault
	vault := postgres.NewVault(pool, logger)

	// Initialize session store: Redis when configured, in-memory otherwise
	sessionTTL := time.Duration(cfg.Session.TTLHours) * time.Hour
	var store session.Store
	if cfg.Redis.Addr != "" {
		logger.Info("Connecting to Redis session store...", "addr", cfg.Redis.Addr)
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		defer client.Close()
		store = session.NewRedisStore(client, sessionTTL)
		logger.Info("Redis session store initialized")
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory session store (single node only)")
		memStore := session.NewMemoryStore(sessionTTL)
		memStore.Start(10 * time.Minute)
		defer memStore.Close()
		store = memStore
	}

	// Initialize event publisher: NATS JetStream when configured
	var publisher events.Publisher
	if cfg.Nats.URL != "" {
		logger.Info("Connecting to NATS...", "url", cfg.Nats.URL)
		natsPublisher, err := events.NewNATSPublisher(cfg.Nats.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Info("NATS event publisher initialized")
	} else {
		logger.Warn("NATS_URL not set, signup lifecycle events will be discarded")
		publisher = events.NopPublisher{}
	}

	// Initialize registration backend client
	logger.Info("Initializing registration client...", "base_url", cfg.Registration.BaseURL)
	registrationClient := registration.NewHTTPClient(cfg.Registration.BaseURL, logger)

	// Initialize funnel metrics
	funnel := telemetry.NewFunnel("onboard", nil)

	// Initialize onboarding service
	svc := onboarding.NewService(onboarding.Config{
		Store:        store,
		Registration: registrationClient,
		Publisher:    publisher,
		Completer:    vault,
		Metrics:      funnel,
		Logger:       logger,
	})
	logger.Info("Onboarding service initialized")

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	// Initialize Prometheus metrics
	metrics := middleware.NewMetrics("onboard")

	// Configure security headers
	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.ContentSecurityPolicy = ""
		securityConfig.HSTSMaxAge = 0
	}

	// Configure rate limiting
	rateLimiterConfig := middleware.DefaultRateLimiterConfig()
	rateLimiterConfig.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
	rateLimiterConfig.BurstSize = cfg.RateLimit.BurstSize
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig)
	defer rateLimiter.Stop()

	// A tighter bucket for the advance route, which can reach the
	// registration backend
	strictLimiter := middleware.NewRateLimiter(middleware.StrictRateLimiterConfig())
	defer strictLimiter.Stop()

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.SecurityHeaders(securityConfig),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
		rateLimiter.Middleware,
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	// Metrics endpoint (protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler.NewSignupHandler(svc, vault, logger).Register(r, strictLimiter.Middleware)

	// ==========================================================================
	// Start server
	// ==========================================================================

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting signup server", "address", addr)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
