package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/homepulse/housing-market-data/internal/api/http"
	"github.com/homepulse/housing-market-data/internal/cache"
	"github.com/homepulse/housing-market-data/internal/config"
	"github.com/homepulse/housing-market-data/internal/market"
	"github.com/homepulse/housing-market-data/internal/market/providers"
	"github.com/homepulse/housing-market-data/internal/scheduler"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Legacy in-memory store; becomes the migration source when a
	// persistent database is configured, the cache itself otherwise.
	memStore, err := cache.NewMemoryStore(cfg.LegacyCacheEntries)
	if err != nil {
		log.Fatalf("failed to create memory store: %v", err)
	}

	var store cache.Store = memStore
	if cfg.CacheDBPath != "" {
		sqliteStore, err := cache.NewSQLiteStore(cfg.CacheDBPath, cache.WithLegacyStore(memStore))
		if err != nil {
			log.Fatalf("failed to open cache database: %v", err)
		}
		store = sqliteStore
	}
	defer store.Close()

	// Provider fallback chain selected from configuration.
	chain, err := providers.BuildChain(providers.ChainConfig{
		Active:        cfg.Provider,
		CSVPath:       cfg.CSVDataPath,
		MaxRecords:    cfg.ParserMaxRecords,
		RemoteBaseURL: cfg.RemoteBaseURL,
		RemoteAPIKey:  cfg.RemoteAPIKey,
		HTTPClient:    httpClient,
	})
	if err != nil {
		log.Fatalf("failed to build provider chain: %v", err)
	}

	// Core service orchestrating cache, single-flight and fallback.
	service := market.NewService(store, chain.Providers, market.TTLConfig{
		PerProvider: map[string]time.Duration{
			providers.VariantRemote: cfg.RemoteTTL,
			providers.VariantCSV:    cfg.CSVTTL,
			providers.VariantMock:   cfg.MockTTL,
		},
	})

	// Scheduler that keeps tracked locations warm.
	sched := scheduler.New(cfg.TrackedLocations, cfg.RefreshInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "housing-market-data",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		BodyLimit:             32 * 1024 * 1024, // bulk CSV uploads
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "housing-market-data",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, chain.CSV)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
