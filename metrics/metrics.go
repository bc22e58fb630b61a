// Package metrics exports loop counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tbxark/formpilot/loop"
)

type Metrics struct {
	agentSteps  prometheus.Counter
	operations  *prometheus.CounterVec
	runs        *prometheus.CounterVec
	stepsPerRun prometheus.Histogram
}

var _ loop.Recorder = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "formpilot"
	}
	m := &Metrics{
		agentSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_steps_total",
			Help:      "Total number of agent turns requested",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of validation operations executed",
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_runs_total",
			Help:      "Total number of finished loop runs",
		}, []string{"reason"}),
		stepsPerRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loop_steps",
			Help:      "Agent turns used per loop run",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),
	}
	for _, c := range []prometheus.Collector{m.agentSteps, m.operations, m.runs, m.stepsPerRun} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) StepStarted() {
	m.agentSteps.Inc()
}

func (m *Metrics) OperationExecuted(ok bool) {
	result := "invalid"
	if ok {
		result = "valid"
	}
	m.operations.WithLabelValues(result).Inc()
}

func (m *Metrics) Finished(reason loop.StopReason, steps int) {
	m.runs.WithLabelValues(string(reason)).Inc()
	m.stepsPerRun.Observe(float64(steps))
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
