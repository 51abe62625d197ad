package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter wires middleware and routes.
//
// Status, health and metrics are open to the station's network. Routes that
// change station state or hold a connection open sit behind requireToken.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(s.limitBody)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusNotFound, CodeNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/metrics", s.handleMetrics)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)

			r.Post("/provisioning/reset", s.handleProvisioningReset)
			r.Get("/ws", s.handleStream)
		})
	})

	return r
}

// handleHealth reports that the API is serving.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
