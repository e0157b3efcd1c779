package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with the shared routes, the routes of
// the selected backend, and the middleware stack.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)

	// Claim and bridge config, both generations
	r.Post("/api", s.handleClaim)
	r.Get("/api/config", s.handleSmallConfig)
	r.Get("/api/{user}/config", s.handleFullConfig)

	// Develop endpoints shared by the GUI and tooling
	r.Get("/develop/lights/{id}", s.handleLightColor)
	r.Get("/develop/stream", s.handleStreamStatus)
	r.Post("/develop/stream", s.handleStreamFrame)
	r.Get("/develop/ws", s.handleWebSocket)
	if s.audit != nil {
		r.Get("/develop/audit", s.handleListAudit)
	}

	s.backend.Routes(r)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	watched, streaming := s.arbiter.Watched()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"generation":  s.backend.Generation(),
		"streaming":   streaming,
		"session":     watched.ID,
		"subscribers": s.events.SubscriberCount(),
		"displays":    s.hub.ClientCount(),
	})
}
