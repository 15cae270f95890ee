package workflow

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus instrumentation for Executor runs, namespaced
// "workflow_". Every labeled metric includes execution_id so concurrent runs
// don't clobber each other's series; the inflight-blocks and layer-depth
// gauges carry no labels and are shared by all runs.
type Metrics struct {
	inflightBlocks prometheus.Gauge
	layerDepth     prometheus.Gauge

	blockLatency *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	pauses       *prometheus.CounterVec
	cancels      *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewMetrics registers workflow metrics with registry. A nil registry uses
// prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,
		inflightBlocks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "workflow",
			Name:      "inflight_blocks",
			Help:      "Blocks currently executing within the current scheduler layer",
		}),
		layerDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "workflow",
			Name:      "layer_depth",
			Help:      "Scheduler tick number of the layer currently executing",
		}),
		blockLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflow",
			Name:      "block_latency_ms",
			Help:      "Block handler execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
		}, []string{"execution_id", "block_kind", "status"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "retries_total",
			Help:      "Block retry attempts, by reason",
		}, []string{"execution_id", "block_id", "reason"}),
		pauses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "pauses_total",
			Help:      "Executions paused, by trigger",
		}, []string{"execution_id", "reason"}),
		cancels: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "cancellations_total",
			Help:      "Executions cancelled",
		}, []string{"execution_id"}),
	}
}

func (m *Metrics) RecordBlockLatency(executionID, blockKind string, latency time.Duration, status string) {
	if !m.isEnabled() {
		return
	}
	m.blockLatency.WithLabelValues(executionID, blockKind, status).Observe(float64(latency.Milliseconds()))
}

func (m *Metrics) IncrementRetries(executionID, blockID, reason string) {
	if !m.isEnabled() {
		return
	}
	m.retries.WithLabelValues(executionID, blockID, reason).Inc()
}

func (m *Metrics) SetInflightBlocks(n int) {
	if !m.isEnabled() {
		return
	}
	m.inflightBlocks.Set(float64(n))
}

func (m *Metrics) SetLayerDepth(n int) {
	if !m.isEnabled() {
		return
	}
	m.layerDepth.Set(float64(n))
}

func (m *Metrics) IncrementPauses(executionID, reason string) {
	if !m.isEnabled() {
		return
	}
	m.pauses.WithLabelValues(executionID, reason).Inc()
}

func (m *Metrics) IncrementCancellations(executionID string) {
	if !m.isEnabled() {
		return
	}
	m.cancels.WithLabelValues(executionID).Inc()
}

func (m *Metrics) isEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Disable stops recording, useful in tests that share a registry.
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

func (m *Metrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}
