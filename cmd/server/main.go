package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"pokewatch/internal/api"
	"pokewatch/internal/api/handlers"
	"pokewatch/internal/api/middleware"
	"pokewatch/internal/engine/catalog"
	"pokewatch/internal/engine/favorites"
	"pokewatch/internal/engine/webhooks"
	"pokewatch/internal/pkg/logger"
	"pokewatch/internal/platform/config"
	"pokewatch/internal/platform/storage"
	"pokewatch/internal/workers"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	db, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local storage")
	}
	defer db.Close()

	kv := storage.NewKV(db)

	// Core: subscription store, bounded delivery pool, dispatcher, bus.
	store := webhooks.NewStore(kv)
	pool := workers.NewPool(cfg.Webhooks.MaxConcurrent, cfg.Webhooks.DeliveryTimeout)
	defer pool.Close()

	dispatcher := webhooks.NewDispatcher(store, pool, cfg.Webhooks, cfg.App)
	bus := webhooks.NewBus(store, dispatcher)

	// Producers
	favoritesSvc := favorites.NewService(kv, bus)
	catalogClient := catalog.New(cfg.Catalog, bus)

	// Handlers
	deps := &api.Dependencies{
		CatalogHandler:   handlers.NewCatalogHandler(catalogClient),
		FavoritesHandler: handlers.NewFavoritesHandler(favoritesSvc),
		WebhookHandler:   handlers.NewWebhookHandler(store, dispatcher),
		HealthHandler:    handlers.NewHealthHandler(db),
		RateLimiter:      middleware.NewRateLimiter(cfg.RateLimit),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
