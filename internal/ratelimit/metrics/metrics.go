package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for request throttling.
type Metrics struct {
	Throttled   *prometheus.CounterVec
	CheckErrors prometheus.Counter
}

// New creates and registers all ratelimit metrics.
func New() *Metrics {
	return &Metrics{
		Throttled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_ratelimit_throttled_total",
			Help: "Total requests rejected by the rate limiter",
		}, []string{"scope"}), // scope: "device", "ip"
		CheckErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_ratelimit_check_errors_total",
			Help: "Total rate limit checks that failed and were let through",
		}),
	}
}

// IncrementThrottled records one rejected request.
func (m *Metrics) IncrementThrottled(scope string) {
	if m != nil {
		m.Throttled.WithLabelValues(scope).Inc()
	}
}

// IncrementCheckError records one failed limiter check.
func (m *Metrics) IncrementCheckError() {
	if m != nil {
		m.CheckErrors.Inc()
	}
}
