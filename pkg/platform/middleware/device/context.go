// Package device provides middleware that derives a device fingerprint from
// the request's User-Agent so later drift checks need no HTTP access.
package device

import (
	"net/http"

	"turnstile/pkg/requestcontext"
)

// Fingerprinter computes a stable fingerprint for a user-agent string.
type Fingerprinter interface {
	ComputeFingerprint(userAgent string) string
}

// Fingerprint computes the request's device fingerprint and stores it in the
// context. Runs after ClientMetadata so the User-Agent is already captured.
func Fingerprint(fp Fingerprinter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if ua := requestcontext.UserAgent(ctx); ua != "" {
				if print := fp.ComputeFingerprint(ua); print != "" {
					ctx = requestcontext.WithDeviceFingerprint(ctx, print)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
