package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "pokewatch/internal/api/context"
	"pokewatch/internal/api/handlers"
	"pokewatch/internal/api/middleware"
)

type Dependencies struct {
	CatalogHandler   *handlers.CatalogHandler
	FavoritesHandler *handlers.FavoritesHandler
	WebhookHandler   *handlers.WebhookHandler
	HealthHandler    *handlers.HealthHandler
	RateLimiter      *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))

	read := deps.RateLimiter.Limit("api_read")
	write := deps.RateLimiter.Limit("api_write")

	// Catalog
	router.GET("/api/v1/pokemon", chain(deps.CatalogHandler.List, read))
	router.GET("/api/v1/random", chain(deps.CatalogHandler.Random, read))
	router.GET("/api/v1/pokemon/:id_or_name", chain(deps.CatalogHandler.Get, read))
	router.GET("/api/v1/pokemon/:id_or_name/species", chain(deps.CatalogHandler.Species, read))
	router.GET("/api/v1/types/:type", chain(deps.CatalogHandler.ByType, read))
	router.GET("/api/v1/search", chain(deps.CatalogHandler.Search, read))

	// Favorites
	router.GET("/api/v1/favorites", chain(deps.FavoritesHandler.List, read))
	router.GET("/api/v1/favorites/export", chain(deps.FavoritesHandler.Export, read))
	router.POST("/api/v1/favorites/import", chain(deps.FavoritesHandler.Import, write))
	router.PUT("/api/v1/favorites/:pokemon_id", chain(deps.FavoritesHandler.Add, write))
	router.DELETE("/api/v1/favorites/:pokemon_id", chain(deps.FavoritesHandler.Remove, write))
	router.DELETE("/api/v1/favorites", chain(deps.FavoritesHandler.Clear, write))

	// Webhooks
	router.GET("/api/v1/webhooks", chain(deps.WebhookHandler.List, read))
	router.POST("/api/v1/webhooks", chain(deps.WebhookHandler.Create, write))
	router.GET("/api/v1/webhooks/:webhook_id", chain(deps.WebhookHandler.Get, read))
	router.PATCH("/api/v1/webhooks/:webhook_id", chain(deps.WebhookHandler.Update, write))
	router.DELETE("/api/v1/webhooks/:webhook_id", chain(deps.WebhookHandler.Delete, write))
	router.POST("/api/v1/webhooks/:webhook_id/test", chain(deps.WebhookHandler.Test, write))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
