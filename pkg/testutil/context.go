package testutil

import (
	"context"
	"net/http"

	id "turnstile/pkg/domain"
	"turnstile/pkg/requestcontext"
)

// WithDeviceID adds an authenticated device ID to the request context.
// This simulates what the device auth middleware would do for authenticated
// requests. If the deviceID is not a valid UUID, it will not be added.
func WithDeviceID(req *http.Request, deviceID string) *http.Request {
	if parsed, err := id.ParseDeviceID(deviceID); err == nil {
		return req.WithContext(requestcontext.WithDeviceID(req.Context(), parsed))
	}
	return req
}

// WithActor adds an administrator label to the request context, as the admin
// token middleware would for authenticated admin requests.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithClientMetadata adds client IP and User-Agent to the request context.
func WithClientMetadata(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
