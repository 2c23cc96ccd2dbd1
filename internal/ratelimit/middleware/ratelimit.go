// Package middleware throttles scan traffic per device.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"turnstile/internal/ratelimit/metrics"
	"turnstile/internal/ratelimit/models"
	"turnstile/pkg/platform/httputil"
	"turnstile/pkg/requestcontext"
)

// BucketStore is the counter backing the throttle.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

// Middleware applies per-device request limits.
type Middleware struct {
	store    BucketStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns the throttle off entirely.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) { mw.metrics = m }
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Throttle limits requests per authenticated device over a sliding window.
// Requests without a device identity fall back to the client IP. A limiter
// failure lets the request through; scanning must not stall on the counter.
func (m *Middleware) Throttle(limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			scope, key := "device", requestcontext.DeviceID(ctx).String()
			if requestcontext.DeviceID(ctx).IsZero() {
				scope, key = "ip", requestcontext.ClientIP(ctx)
			}

			result, err := m.store.Allow(ctx, scope+":"+key, limit, window)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				m.metrics.IncrementCheckError()
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				m.metrics.IncrementThrottled(scope)
				writeThrottled(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeThrottled(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limit_exceeded",
		"message":     "Too many scan requests. Please slow down.",
		"retry_after": result.RetryAfter,
	})
}
