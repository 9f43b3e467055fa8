package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/handlers"
	"feedcast-pipeline/internal/pkg/logger"
	"feedcast-pipeline/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.LogConfig{
		Level:    cfg.Logger.Level,
		Format:   cfg.Logger.Format,
		Output:   cfg.Logger.Output,
		FilePath: cfg.Logger.FilePath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting feedcast discovery pipeline", "port", cfg.Server.Port)

	reputation, err := services.NewReputationService(cfg.Reputation, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize reputation service")
		os.Exit(1)
	}

	providers := buildProviders(cfg, log)
	if len(providers) == 0 {
		log.Error("No search providers configured, set NEWS_API_KEY or RSS_FEEDS")
		os.Exit(1)
	}

	search := services.NewSearchService(providers, cfg.Search, log)
	normalizer := services.NewNormalizerService(log)
	dedup := services.NewDedupService(reputation, cfg.Discovery, log)
	scorer := services.NewScorerService(cfg.Discovery, log)
	grouper := services.NewGrouperService(cfg.Discovery, log)

	var enrichment *services.EnrichmentService
	if cfg.Enrichment.Enabled {
		enrichment, err = services.NewEnrichmentService(cfg.Enrichment, log)
		if err != nil {
			log.WithError(err).Warn("Enrichment unavailable, continuing without it")
			enrichment = nil
		}
	}

	cache := buildCache(cfg, log)
	defer cache.Close()

	discovery := services.NewDiscoveryService(
		search, enrichment, normalizer, dedup, scorer, grouper,
		cache, cfg.Discovery, log)

	handler := handlers.NewDiscoveryHandler(discovery, log)

	if cfg.Logger.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	if err := discovery.Close(cfg.Server.ShutdownTimeout); err != nil {
		log.WithError(err).Warn("Discovery service shutdown incomplete")
	}

	log.Info("Pipeline stopped")
}

// buildProviders wires every upstream the configuration enables. The
// pipeline runs with whichever subset is available.
func buildProviders(cfg *config.Config, log *logger.Logger) []services.SearchProvider {
	var providers []services.SearchProvider

	if cfg.Search.NewsAPIKey != "" {
		newsAPI, err := services.NewNewsAPIProvider(cfg.Search, log)
		if err != nil {
			log.WithError(err).Warn("NewsAPI provider unavailable")
		} else {
			providers = append(providers, newsAPI)
		}
	}

	if len(cfg.Search.RSSFeeds) > 0 {
		providers = append(providers, services.NewRSSProvider(cfg.Search, log))
	}

	return providers
}

// buildCache prefers Redis so cached runs survive restarts and are shared
// across replicas. An unreachable Redis degrades to the in-process cache.
func buildCache(cfg *config.Config, log *logger.Logger) services.ResultCache {
	if cfg.Redis.URL != "" {
		redisCache, err := services.NewRedisResultCache(cfg.Redis, log)
		if err == nil {
			return redisCache
		}
		log.WithError(err).Warn("Redis unavailable, falling back to in-memory cache")
	}
	return services.NewMemoryResultCache(5*time.Minute, log)
}
