package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for report building and export.
type Metrics struct {
	Builds        *prometheus.CounterVec
	Renders       *prometheus.CounterVec
	BuildDuration prometheus.Histogram
}

// New creates and registers all report metrics.
func New() *Metrics {
	return &Metrics{
		Builds: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_report_builds_total",
			Help: "Total report builds by view",
		}, []string{"view"}), // view: "event", "attendance"
		Renders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_report_renders_total",
			Help: "Total report renders by format",
		}, []string{"format"}),
		BuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "turnstile_report_build_duration_seconds",
			Help:    "Latency of report builds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncrementBuild records one report build.
func (m *Metrics) IncrementBuild(view string) {
	if m != nil {
		m.Builds.WithLabelValues(view).Inc()
	}
}

// IncrementRender records one format render.
func (m *Metrics) IncrementRender(format string) {
	if m != nil {
		m.Renders.WithLabelValues(format).Inc()
	}
}

// ObserveBuildDuration records the latency of one build.
func (m *Metrics) ObserveBuildDuration(d time.Duration) {
	if m != nil {
		m.BuildDuration.Observe(d.Seconds())
	}
}
