package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the check-in protocol.
type Metrics struct {
	ScanOutcomes *prometheus.CounterVec
	ScanDuration prometheus.Histogram
	FeedFailures prometheus.Counter
}

// New creates and registers all check-in metrics.
func New() *Metrics {
	return &Metrics{
		ScanOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_scans_total",
			Help: "Total verification attempts by outcome and reason",
		}, []string{"outcome", "reason"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "turnstile_scan_duration_seconds",
			Help:    "End to end latency of verification attempts",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		FeedFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_feed_push_failures_total",
			Help: "Recent-scans feed pushes that failed and were dropped",
		}),
	}
}

// IncrementScan records one verification attempt.
func (m *Metrics) IncrementScan(outcome, reason string) {
	if m != nil {
		m.ScanOutcomes.WithLabelValues(outcome, reason).Inc()
	}
}

// ObserveScanDuration records the latency of one verification attempt.
func (m *Metrics) ObserveScanDuration(d time.Duration) {
	if m != nil {
		m.ScanDuration.Observe(d.Seconds())
	}
}

// IncrementFeedFailure records a dropped feed push.
func (m *Metrics) IncrementFeedFailure() {
	if m != nil {
		m.FeedFailures.Inc()
	}
}
