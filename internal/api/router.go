package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Trading-Simulator-Backend/internal/api/middleware"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/config"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(systemService *service.SystemService, gameService *service.GameService, m *metrics.Metrics, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	r.Method(http.MethodGet, "/metrics", m.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/game", func(r chi.Router) {
			gameHandler := handlers.NewGameHandler(gameService)
			r.Get("/", gameHandler.Games)
			r.Post("/", gameHandler.CreateGame)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", gameHandler.GetGame)
				r.Post("/trade", gameHandler.Trade)
				r.Post("/advance", gameHandler.Advance)
				r.Post("/marks", gameHandler.RefreshMarks)
				r.Get("/performance", gameHandler.Performance)
				r.Get("/history", gameHandler.History)
				r.Get("/ledger/{symbol}", gameHandler.Ledger)
			})
		})

		r.Route("/costs", func(r chi.Router) {
			costHandler := handlers.NewCostHandler(gameService)
			r.Get("/quote", costHandler.Quote)
		})
	})

	return r
}
