package middleware

import (
	"context"
	"net/http"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/config"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
)

type actorKey struct{}

// APIKeyAuth middleware resolves the "api_key" header to an actor and
// stores it in the request context.
func APIKeyAuth(cfg config.AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("api_key")

			if apiKey == "" {
				http.Error(w, "Unauthorized: API key required", http.StatusUnauthorized)
				return
			}

			actor, ok := cfg.APIKeys[apiKey]
			if !ok {
				http.Error(w, "Forbidden: Invalid API key", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// WithActor returns a copy of ctx carrying the actor
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor set by APIKeyAuth
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)
	return actor, ok
}
