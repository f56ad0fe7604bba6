package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/CloudGames/internal/auth"
	"github.com/utafrali/CloudGames/internal/service"
	"github.com/utafrali/CloudGames/pkg/health"
	"github.com/utafrali/CloudGames/pkg/middleware"
)

// RouterConfig carries the dependencies of NewRouter.
type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string

	Catalog  *service.CatalogService
	Search   *service.SearchService
	Purchase *service.PurchaseService

	// Per-caller limit on purchases; a zero rate disables it.
	PurchaseRPS   float64
	PurchaseBurst int

	Tokens middleware.TokenValidator
	Health *health.Handler
	Logger *slog.Logger
}

// NewRouter creates a chi router with all games service routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CorrelationIDHeader},
		ExposedHeaders:   []string{middleware.CorrelationIDHeader, IndexSyncHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	games := NewGamesHandler(cfg.Catalog, cfg.Logger)
	search := NewSearchHandler(cfg.Search, cfg.Logger)
	purchase := NewPurchaseHandler(cfg.Purchase, cfg.Logger)

	anyRole := middleware.RequireRole(auth.RoleAdmin, auth.RoleUser)
	adminOnly := middleware.RequireRole(auth.RoleAdmin)

	r.Route("/api/games", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Tokens))

		r.Group(func(r chi.Router) {
			r.Use(anyRole)

			// Search routes are registered before /{id} so "search" is never
			// taken for a game id.
			r.Get("/search", search.Search)
			r.Get("/search/popular", search.Popular)

			r.Get("/", games.ListGames)
			r.Get("/{id}", games.GetGame)
			r.With(middleware.RateLimit(cfg.PurchaseRPS, cfg.PurchaseBurst, cfg.Logger)).
				Post("/{id}/purchase", purchase.Purchase)
		})

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Post("/", games.CreateGame)
			r.Put("/", games.UpdateGameFromBody)
			r.Put("/{id}", games.UpdateGame)
			r.Delete("/{id}", games.DeleteGame)
		})
	})

	return r
}
