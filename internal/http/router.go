// Package httpapi assembles the HTTP surface: middleware chain, admin routes,
// the device-authenticated scan route and the operational endpoints.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	checkinHandler "turnstile/internal/checkin/handler"
	deviceHandler "turnstile/internal/device/handler"
	platformMetrics "turnstile/internal/platform/metrics"
	platformMiddleware "turnstile/internal/platform/middleware"
	ratelimitMiddleware "turnstile/internal/ratelimit/middleware"
	registrationHandler "turnstile/internal/registration/handler"
	reportHandler "turnstile/internal/report/handler"
	rosterHandler "turnstile/internal/roster/handler"
	adminMiddleware "turnstile/pkg/platform/middleware/admin"
	authMiddleware "turnstile/pkg/platform/middleware/auth"
	deviceMiddleware "turnstile/pkg/platform/middleware/device"
	"turnstile/pkg/platform/middleware/metadata"
	requestMiddleware "turnstile/pkg/platform/middleware/request"
	"turnstile/pkg/platform/middleware/requesttime"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router mounts. Optional fields may be nil;
// the corresponding middleware or route group is skipped.
type Deps struct {
	Logger  *slog.Logger
	Metrics *platformMetrics.Metrics

	AdminToken        string
	TokenValidator    authMiddleware.TokenValidator
	RevocationChecker authMiddleware.TokenRevocationChecker
	Fingerprinter     deviceMiddleware.Fingerprinter

	Throttle   *ratelimitMiddleware.Middleware
	ScanLimit  int
	ScanWindow time.Duration

	Roster        *rosterHandler.Handler
	Registrations *registrationHandler.Handler
	CheckIns      *checkinHandler.Handler
	Reports       *reportHandler.Handler
	Devices       *deviceHandler.Handler
}

// NewRouter builds the full route tree.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(platformMiddleware.Recovery(deps.Logger))
	r.Use(requestMiddleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(platformMiddleware.Logger(deps.Logger))
	r.Use(platformMiddleware.Timeout(requestTimeout))
	r.Use(platformMiddleware.ContentTypeJSON)
	if deps.Metrics != nil {
		r.Use(platformMiddleware.LatencyMiddleware(deps.Metrics))
	}
	if deps.Fingerprinter != nil {
		r.Use(deviceMiddleware.Fingerprint(deps.Fingerprinter))
	}

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Device authentication exchanges an enrollment secret for a token, so
	// it cannot itself require one.
	r.Group(func(r chi.Router) {
		deps.Devices.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireDevice(deps.TokenValidator, deps.RevocationChecker, deps.Logger))
		if deps.Throttle != nil {
			r.Use(deps.Throttle.Throttle(deps.ScanLimit, deps.ScanWindow))
		}
		deps.CheckIns.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(adminMiddleware.RequireAdminToken(deps.AdminToken, deps.Logger))
		deps.Roster.Register(r)
		deps.Registrations.Register(r)
		deps.Reports.Register(r)
		deps.Devices.RegisterAdmin(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
