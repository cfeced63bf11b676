package api

import (
	"log/slog"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/slpdexd/indexer/internal/api/handlers"
	"github.com/slpdexd/indexer/internal/api/middleware"
	"github.com/slpdexd/indexer/internal/broadcast"
	"github.com/slpdexd/indexer/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRouter creates and configures the Chi router serving the health check
// and the per-address websocket stream (spec.md §6.4).
func NewRouter(store handlers.Store, resync handlers.Resyncer, bus *broadcast.Bus, cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging)
	r.Use(chimiddleware.Recoverer)

	slog.Info("router initialized", "middleware", []string{"requestLogging", "recoverer"})

	r.Get("/api/health", handlers.HealthHandler(cfg, Version))
	r.Get("/ws/{cash_address}", handlers.WebsocketHandler(store, resync, bus))

	return r
}
