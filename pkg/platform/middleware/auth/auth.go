package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "turnstile/pkg/domain"
	request "turnstile/pkg/platform/middleware/request"
	"turnstile/pkg/requestcontext"
)

// TokenValidator defines the interface for validating device bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*DeviceClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// DeviceClaims represents the claims we expect from the token validator.
type DeviceClaims struct {
	DeviceID    id.DeviceID
	DeviceName  string
	Fingerprint string
	JTI         string // token ID for revocation tracking
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireDevice authenticates scanning devices by bearer token. Revoked
// tokens are rejected; a revocation-store failure rejects too, since letting
// a possibly stolen scanner through is the worse failure mode.
func RequireDevice(validator TokenValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if after, ok := strings.CutPrefix(authHeader, bearerPrefix); ok {
				token := after
				claims, err := validator.ValidateToken(token)
				if err != nil {
					ctx := r.Context()
					requestID := request.GetRequestID(ctx)
					logger.WarnContext(ctx, "unauthorized scan - invalid device token",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}

				ctx := r.Context()

				if revocationChecker != nil {
					if claims.JTI == "" {
						requestID := request.GetRequestID(ctx)
						logger.WarnContext(ctx, "unauthorized scan - missing token jti",
							"request_id", requestID,
						)
						writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
						return
					}

					revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
					if err != nil {
						requestID := request.GetRequestID(ctx)
						logger.ErrorContext(ctx, "failed to check token revocation",
							"error", err,
							"request_id", requestID,
						)
						writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to validate token")
						return
					}
					if revoked {
						requestID := request.GetRequestID(ctx)
						logger.WarnContext(ctx, "unauthorized scan - token revoked",
							"jti", claims.JTI,
							"request_id", requestID,
						)
						writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Token has been revoked")
						return
					}
				}

				ctx = requestcontext.WithDeviceID(ctx, claims.DeviceID)
				ctx = requestcontext.WithDeviceName(ctx, claims.DeviceName)

				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// No Authorization header or invalid format
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)
			logger.WarnContext(ctx, "unauthorized scan - missing token",
				"request_id", requestID,
			)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
		})
	}
}
