package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Dashboard page (embedded static bundle)
	r.Handle("/dashboard/*", http.StripPrefix("/dashboard", panel.Handler(s.webDir)))
	r.Handle("/dashboard", http.RedirectHandler("/dashboard/", http.StatusMovedPermanently))
	r.Handle("/", http.RedirectHandler("/dashboard/", http.StatusFound))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Get("/channels", s.handleListChannels)
		r.Get("/range", s.handleRange)
		r.Get("/series", s.handleSeries)
		r.Get("/valves", s.handleValves)
		r.Get("/summary", s.handleSummary)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Post("/", s.handleCreateReport)
		})

		r.Post("/refresh", s.handleRefresh)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}
