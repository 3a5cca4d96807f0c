package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"placeclaim/pkg/requestcontext"
)

type contextKeyAdminActorID struct{}

// ContextKeyAdminActorID is exported for use in handlers and tests.
var ContextKeyAdminActorID = contextKeyAdminActorID{}

// GetAdminActorID retrieves the admin actor identifier from the context.
// Returns empty string if not set or if this is not an admin request.
func GetAdminActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(ContextKeyAdminActorID).(string); ok {
		return actorID
	}
	return ""
}

// WithAdminActorID injects an admin actor identifier, for tests and internal callers.
func WithAdminActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ContextKeyAdminActorID, actorID)
}

// RequireAdminToken guards admin routes with a shared token and requires
// X-Admin-Actor-ID so every review decision can be attributed.
// Whether the actor actually holds review authority is decided downstream.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "admin token required")
				return
			}

			actorID := r.Header.Get("X-Admin-Actor-ID")
			if actorID == "" {
				logger.WarnContext(ctx, "admin request without actor id",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "admin actor id required")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAdminActorID(ctx, actorID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"unauthorized","message":"` + msg + `"}}`))
}
