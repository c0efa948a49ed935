package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/estateforge/prospect-engine/internal/app"
	"github.com/estateforge/prospect-engine/internal/observability"
)

func newRouter(engine *app.App) http.Handler {
	h := newHandlers(engine)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(engine.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/readyz", h.ready)

	r.Route("/api/prospects", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Post("/", h.createProspect)
		r.Get("/{id}", h.getProspect)
		r.Post("/{id}/process", h.processProspect)
		r.Post("/{id}/retry", h.retryProspect)
		r.Post("/{id}/reprocess", h.reprocessProspect)
	})

	// Streaming endpoint stays outside the request timeout.
	r.Get("/api/prospects/{id}/events", h.streamEvents)

	return r
}

// requestLogger logs one line per request in the service's structured
// format.
func requestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Request handled")
		})
	}
}
