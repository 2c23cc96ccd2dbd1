package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	request "turnstile/pkg/platform/middleware/request"
	"turnstile/pkg/requestcontext"
)

// RequireAdminToken guards administrative routes with a shared token.
// The optional X-Admin-Actor header attributes the action in audit events.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			// Use constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				requestID := request.GetRequestID(ctx)
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestID,
				)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			actor := r.Header.Get("X-Admin-Actor")
			if actor == "" {
				actor = "admin"
			}
			ctx := requestcontext.WithActor(r.Context(), actor)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
