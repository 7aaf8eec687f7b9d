// Package metrics exposes Prometheus metrics for workflow runs, steps, triggers and emails.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "flowrun"

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stepDuration   *prometheus.HistogramVec
	stepRetries    *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runsActive     prometheus.Gauge
	triggerFires   *prometheus.CounterVec
	triggersActive prometheus.Gauge
	emailsTotal    *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry that also
// carries the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Histogram of step execution duration in seconds, retries included",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"node_type", "status"}, // status: success, failure
		),
		stepRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_retries_total",
				Help:      "Total number of step retries",
			},
			[]string{"node_type"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished workflow runs",
			},
			[]string{"status"}, // status: completed, failed
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Histogram of workflow run duration in seconds",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"status"},
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_active",
				Help:      "Number of workflow runs in progress",
			},
		),
		triggerFires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trigger_fires_total",
				Help:      "Total number of run requests written by triggers",
			},
			[]string{"trigger_type"},
		),
		triggersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "triggers_scheduled",
				Help:      "Number of installed trigger registrations",
			},
		),
		emailsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_total",
				Help:      "Total number of processed emails",
			},
			[]string{"status"}, // status: sent, failed
		),
	}

	m.registry.MustRegister(
		m.stepDuration,
		m.stepRetries,
		m.runsTotal,
		m.runDuration,
		m.runsActive,
		m.triggerFires,
		m.triggersActive,
		m.emailsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveStep(nodeType, status string, d time.Duration) {
	if m == nil {
		return
	}

	m.stepDuration.WithLabelValues(nodeType, status).Observe(d.Seconds())
}

func (m *Metrics) IncRetry(nodeType string) {
	if m == nil {
		return
	}

	m.stepRetries.WithLabelValues(nodeType).Inc()
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}

	m.runsActive.Inc()
}

func (m *Metrics) RunFinished(status string, d time.Duration) {
	if m == nil {
		return
	}

	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) TriggerFired(triggerType string) {
	if m == nil {
		return
	}

	m.triggerFires.WithLabelValues(triggerType).Inc()
}

func (m *Metrics) SetTriggersScheduled(n int) {
	if m == nil {
		return
	}

	m.triggersActive.Set(float64(n))
}

func (m *Metrics) EmailProcessed(status string) {
	if m == nil {
		return
	}

	m.emailsTotal.WithLabelValues(status).Inc()
}
