package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/cadence/internal/api/middleware"
	"github.com/phrazzld/cadence/internal/service/auth"
)

// RouterDeps holds everything the router needs to build its handlers.
type RouterDeps struct {
	Reviews       *ReviewHandler
	History       *HistoryHandler
	Stats         *StatsHandler
	ItemEvents    *ItemEventHandler
	JWTService    auth.JWTService
	InternalToken string
	Logger        *slog.Logger
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(log))

	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.JWTService)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/reviews/due", deps.Reviews.ListDue)
		r.Post("/reviews/{id}", deps.Reviews.SubmitReview)
		r.Get("/history", deps.History.List)
		r.Get("/stats", deps.Stats.Summary)
		r.Get("/stats/trend", deps.Stats.Trend)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(apiMiddleware.RequireInternalToken(deps.InternalToken))
		r.Post("/items/events", deps.ItemEvents.Receive)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
