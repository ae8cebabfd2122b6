// Package metrics exposes Prometheus metrics for deployment runs.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Run results.
const (
	ResultCompleted   = "completed"
	ResultConfigError = "config_error"
	ResultDeployError = "deploy_error"
	// ResultAborted covers failures before the deployer is called that are
	// not configuration errors: artifact resolution and a held account lock.
	ResultAborted = "aborted"
)

// Metrics holds the collectors of one process on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastGasUsed prometheus.Gauge
	lastBlock   prometheus.Gauge
}

// New registers the run collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indicator_deployer_runs_total",
				Help: "Total number of configurator runs by result",
			},
			[]string{"result"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indicator_deployer_run_duration_seconds",
				Help:    "Configurator run duration in seconds, including confirmation",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		lastGasUsed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "indicator_deployer_last_gas_used",
				Help: "Gas used by the most recent successful deployment",
			},
		),
		lastBlock: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "indicator_deployer_last_block_number",
				Help: "Block number of the most recent successful deployment",
			},
		),
	}
}

// WithProcessCollectors adds the Go runtime and process collectors. Used by
// long-running processes; a one-shot CLI push does not need them.
func (m *Metrics) WithProcessCollectors() *Metrics {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the outcome and duration of one run.
func (m *Metrics) ObserveRun(result string, d time.Duration) {
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(d.Seconds())
}

// ObserveDeployment records receipt data of a successful deployment.
func (m *Metrics) ObserveDeployment(gasUsed, blockNumber uint64) {
	m.lastGasUsed.Set(float64(gasUsed))
	m.lastBlock.Set(float64(blockNumber))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Push sends the registry to a Pushgateway under job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
