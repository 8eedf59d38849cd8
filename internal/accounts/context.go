package accounts

import (
	"context"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/models"
)

type sessionCtxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// FromContext returns the session stored by NewContext, or ErrNoActiveSession.
func FromContext(ctx context.Context) (models.Session, error) {
	s, ok := ctx.Value(sessionCtxKey{}).(models.Session)
	if !ok || !s.Active() {
		return models.Session{}, apperr.ErrNoActiveSession
	}
	return s, nil
}
