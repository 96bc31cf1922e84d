// Package metrics exposes Prometheus collectors for classification, runs
// and exports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sozercan/agenicai/internal/agents"
	"github.com/sozercan/agenicai/internal/sequencer"
)

const namespace = "agenicai"

type Metrics struct {
	registry *prometheus.Registry

	Classifications *prometheus.CounterVec
	RunsStarted     prometheus.Counter
	RunsFinished    *prometheus.CounterVec
	RunsActive      prometheus.Gauge
	AgentSteps      *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	Exports         *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Queries classified, by resulting scope.",
		}, []string{"scope"}),
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Analysis runs started.",
		}),
		RunsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Analysis runs finished, by terminal state.",
		}, []string{"state"}),
		RunsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Analysis runs currently executing.",
		}),
		AgentSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_steps_total",
			Help:      "Agent status transitions applied, by agent and status.",
		}, []string{"agent", "status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished analysis runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 7.5, 10, 15, 30, 60},
		}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Report artifacts rendered, by format.",
		}, []string{"format"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Classifications,
		m.RunsStarted,
		m.RunsFinished,
		m.RunsActive,
		m.AgentSteps,
		m.RunDuration,
		m.Exports,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RunStarted implements sequencer.Observer.
func (m *Metrics) RunStarted(*sequencer.Run) {
	m.RunsStarted.Inc()
	m.RunsActive.Inc()
}

// StepApplied implements sequencer.Observer.
func (m *Metrics) StepApplied(_ *sequencer.Run, agent string, status agents.Status) {
	m.AgentSteps.WithLabelValues(agent, string(status)).Inc()
}

// RunFinished implements sequencer.Observer.
func (m *Metrics) RunFinished(run *sequencer.Run) {
	m.RunsActive.Dec()
	m.RunsFinished.WithLabelValues(string(run.State())).Inc()
	if d := run.Duration(); d > 0 {
		m.RunDuration.Observe(d.Seconds())
	}
}
