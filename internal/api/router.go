package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes, meant to be mounted
// under /api. authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Accounts and session.
	r.Post("/accounts", h.Register)
	r.Post("/session", h.Login)
	r.Get("/session", h.CurrentSession)
	r.Delete("/session", h.Logout)

	// Notes of the current session.
	r.Route("/notes", func(r chi.Router) {
		r.Use(h.SessionMiddleware)
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Get("/stats", h.NoteStats)
		r.Get("/{id}", h.GetNote)
		r.Put("/{id}", h.UpdateNote)
		r.Post("/{id}/toggle", h.ToggleNote)
		r.Delete("/{id}", h.DeleteNote)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthRoutes mounts unauthenticated liveness and readiness probes.
// Readiness fails with 503 while store cannot be reached.
func HealthRoutes(r chi.Router, store Pinger) {
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := store.Ping(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
