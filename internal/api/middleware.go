// Package api implements the notas REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/starford/notas/internal/accounts"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionMiddleware resolves the current session and stores it in the
// request context. Requests without a session, or whose session names an
// unregistered account, get 401.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.dir.Resolve(r.Context())
		if err != nil {
			h.writeError(w, "resolve session", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(accounts.NewContext(r.Context(), s)))
	})
}

// session returns the session stored by SessionMiddleware.
func session(r *http.Request) (Session, error) {
	return accounts.FromContext(r.Context())
}
