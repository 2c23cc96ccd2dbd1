// Package request provides request-ID middleware and accessors.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"turnstile/pkg/requestcontext"
)

// HeaderRequestID is the header carrying the request ID in and out.
const HeaderRequestID = "X-Request-ID"

// RequestID ensures every request carries an ID: an incoming X-Request-ID is
// kept, otherwise a fresh UUID is assigned. The ID is stored in the context
// and echoed on the response for client-side correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
