package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/middleware"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/chat"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/scheduler"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/service"
)

// NewRouter creates and configures the HTTP router.
// assistant may be nil when chat is not configured.
func NewRouter(
	systemService *service.SystemService,
	queryService *service.QueryService,
	runner *scheduler.Runner,
	assistant *chat.Assistant,
	cfg *config.Config,
	logger *logrus.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.NewLogger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/fund", func(r chi.Router) {
			fundHandler := handlers.NewFundHandler(queryService)
			r.Get("/", fundHandler.Funds)
			r.Get("/top-level", fundHandler.TopLevelFunds)

			r.Route("/{ticker}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateTickerMiddleware)
				r.Get("/", fundHandler.Fund)
				r.Get("/holdings", fundHandler.Holdings)
				r.Get("/top", fundHandler.TopHoldings)
				r.Get("/allocation", fundHandler.Allocation)
				r.Get("/structure", fundHandler.Structure)
				r.Get("/quality", fundHandler.Quality)
			})
		})

		overlapHandler := handlers.NewOverlapHandler(queryService)
		r.Get("/overlap", overlapHandler.Overlap)

		r.Route("/load", func(r chi.Router) {
			loadHandler := handlers.NewLoadHandler(runner)
			r.Get("/", loadHandler.LastRun)
			r.With(custommiddleware.NewAPIKey(cfg.Server.APIKey)).Post("/", loadHandler.Load)
		})

		chatHandler := handlers.NewChatHandler(assistant, cfg.Server.APIKey)
		r.Post("/chat", chatHandler.Chat)
	})

	return r
}
