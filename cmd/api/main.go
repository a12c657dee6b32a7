package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/adapters/cache"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/adapters/database"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/adapters/events"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/api/handlers"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/api/middleware"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/api/routes"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/application/services"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/providers"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/config"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/secrets"
)

func main() {

	// Hydrate environment from Vault before reading configuration
	vaultCfg := secrets.LoadVaultConfigFromEnv("")
	if result, err := secrets.ApplyVaultSecrets(context.Background(), vaultCfg); err != nil {
		log.Printf("Warning: Failed to load Vault secrets: %v", err)
	} else if result.Enabled {
		log.Printf("Loaded %d secrets from Vault path %s", result.Loaded, result.Path)
	}

	// Load configuration

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize structured logging
	observability.InitLogger(cfg.OTEL.ServiceName, os.Getenv("APP_ENV"))

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - coverage resolution falls back to the database
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize adapters

	ruleAdapter := database.NewRuleAdapter(pgClient)
	planAdapter := database.NewPlanAdapter(pgClient)
	claimAdapter := database.NewClaimAdapter(pgClient)
	paymentAdapter := database.NewPaymentAdapter(pgClient)

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Initialize event bus for cache invalidation fan-out
	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	// Initialize services

	coverageService := services.NewCoverageService(
		ruleAdapter,
		planAdapter,
		cacheProvider,
		eventBus,
		cfg.Cache.ResolutionTTLSeconds,
	)
	importService := services.NewImportService(ruleAdapter, planAdapter, cacheProvider, eventBus)
	claimService := services.NewClaimService(claimAdapter, coverageService, cacheProvider, eventBus)
	reportingService := services.NewReportingService(
		claimAdapter,
		planAdapter,
		paymentAdapter,
		ruleAdapter,
		cacheProvider,
		cfg.Cache.ReportTTLSeconds,
	)

	// Initialize cache invalidation service
	var cacheInvalidationService *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		cacheInvalidationService = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Printf("Warning: Failed to start cache invalidation service: %v", err)
		} else {
			log.Println("Cache invalidation service started successfully")
		}
	}

	// Initialize handlers

	coverageHandler := handlers.NewCoverageHandler(coverageService, importService)
	claimHandler := handlers.NewClaimHandler(claimService)
	reportHandler := handlers.NewReportHandler(reportingService)
	planHandler := handlers.NewPlanHandler(planAdapter)

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Println("Cache middleware initialized successfully")
	}

	// Set up router

	router := routes.NewRouter(
		coverageHandler,
		claimHandler,
		reportHandler,
		planHandler,
		cacheMiddleware,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	// Close event bus
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	// Stop cache invalidation service
	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}

	log.Println("Server stopped")
}
