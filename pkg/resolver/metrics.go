package resolver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeApplied = "applied"
	outcomeStale   = "stale"
	outcomeError   = "error"
)

// Metrics counts resolutions by outcome and records their latency.
type Metrics struct {
	resolutions *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics creates the resolver collectors and registers them with reg
// when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omniserve",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Autocomplete resolutions by outcome (applied, stale, error).",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "omniserve",
			Subsystem: "resolver",
			Name:      "resolution_seconds",
			Help:      "Time from Resolve to its outcome.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.resolutions, m.duration)
	}
	return m
}

func (m *Metrics) observe(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}
