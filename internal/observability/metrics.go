package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-run step and install measurements. Each run owns its
// own registry so repeated runs in one process never collide.
type Metrics struct {
	registry        *prometheus.Registry
	steps           *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	installs        *prometheus.CounterVec
	installDuration *prometheus.HistogramVec
	lastRunSuccess  prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lemming",
				Subsystem: "step",
				Name:      "total",
				Help:      "Steps finished, by outcome.",
			},
			[]string{"name", "kind", "mode", "outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lemming",
				Subsystem: "step",
				Name:      "duration_seconds",
				Help:      "Tool command duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"name", "kind", "mode"},
		),
		installs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lemming",
				Subsystem: "install",
				Name:      "total",
				Help:      "pip invocations, by success.",
			},
			[]string{"success"},
		),
		installDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lemming",
				Subsystem: "install",
				Name:      "duration_seconds",
				Help:      "pip invocation duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"success"},
		),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lemming",
			Name:      "last_run_success",
			Help:      "1 if the last run passed, 0 otherwise.",
		}),
	}
	m.registry.MustRegister(m.steps, m.stepDuration, m.installs, m.installDuration, m.lastRunSuccess)
	return m
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) RecordStep(name, kind, mode, outcome string, duration time.Duration, ran bool) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(name, kind, mode, outcome).Inc()
	if ran {
		m.stepDuration.WithLabelValues(name, kind, mode).Observe(duration.Seconds())
	}
}

// ObserveInstall satisfies install.Observer.
func (m *Metrics) ObserveInstall(_ []string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	successLabel := strconv.FormatBool(err == nil)
	m.installs.WithLabelValues(successLabel).Inc()
	m.installDuration.WithLabelValues(successLabel).Observe(duration.Seconds())
}

func (m *Metrics) RecordRun(success bool) {
	if m == nil {
		return
	}
	if success {
		m.lastRunSuccess.Set(1)
		return
	}
	m.lastRunSuccess.Set(0)
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
