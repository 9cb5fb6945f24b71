// Package metrics exposes monitor counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes used as the "outcome" label.
const (
	OutcomeBaseline   = "baseline"
	OutcomeQuiet      = "quiet"
	OutcomeAlert      = "alert"
	OutcomeFetchError = "fetch_error"
	OutcomePanic      = "panic"
)

type Metrics struct {
	reg *prometheus.Registry

	cycles           *prometheus.CounterVec
	alertsSent       prometheus.Counter
	notifyFailures   *prometheus.CounterVec
	trackedLocations prometheus.Gauge
	fetchDuration    prometheus.Histogram
	lastSuccess      prometheus.Gauge
}

// New registers the collectors on a fresh registry, so several monitors
// (or tests) never collide on the global one.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "slotwatch_cycles_total",
			Help: "Monitor cycles by outcome.",
		}, []string{"outcome"}),
		alertsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "slotwatch_alerts_sent_total",
			Help: "Alerts handed to the notifier.",
		}),
		notifyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "slotwatch_notify_failures_total",
			Help: "Failed deliveries per channel.",
		}, []string{"channel"}),
		trackedLocations: f.NewGauge(prometheus.GaugeOpts{
			Name: "slotwatch_tracked_locations",
			Help: "Locations in the held snapshot.",
		}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "slotwatch_fetch_duration_seconds",
			Help:    "Time spent retrieving the availability table.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. 64s
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "slotwatch_last_success_timestamp_seconds",
			Help: "Unix time of the last successful retrieval.",
		}),
	}
}

func (m *Metrics) Cycle(outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AlertSent() {
	if m == nil {
		return
	}
	m.alertsSent.Inc()
}

func (m *Metrics) NotifyFailed(channel string) {
	if m == nil {
		return
	}
	m.notifyFailures.WithLabelValues(channel).Inc()
}

func (m *Metrics) Fetched(d time.Duration, locations int, at time.Time) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
	m.trackedLocations.Set(float64(locations))
	m.lastSuccess.Set(float64(at.Unix()))
}

// Handler serves the registry for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
