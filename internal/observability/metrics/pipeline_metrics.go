package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics captures calculation pipeline health signals.
type PipelineMetrics struct {
	published      *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	failures       *prometheus.CounterVec
	processLatency prometheus.Observer
	queueWait      prometheus.Observer
	queueDepth     prometheus.Gauge
	discarded      prometheus.Counter
	enrichments    *prometheus.CounterVec
}

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *PipelineMetrics
)

// Pipeline returns the singleton pipeline metrics registry.
func Pipeline() *PipelineMetrics {
	return PipelineWithConfig(Config{})
}

// PipelineWithConfig returns the singleton pipeline metrics registry using config labels.
func PipelineWithConfig(cfg Config) *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = newPipelineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pipelineMetrics
}

// ResetPipelineMetricsForTest resets the pipeline metrics singleton for tests.
func ResetPipelineMetricsForTest() {
	pipelineMetricsOnce = sync.Once{}
	pipelineMetrics = nil
}

// NewPipelineMetricsForTest builds pipeline collectors on a private registry.
func NewPipelineMetricsForTest(registerer prometheus.Registerer) *PipelineMetrics {
	return newPipelineMetrics(registerer, Config{ServiceName: "nbaflow", Environment: "test"})
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "nbaflow"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

func newPipelineMetrics(registerer prometheus.Registerer, cfg Config) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "nbaflow_queue_published_total",
		Help:        "Calculation events handed to the queue by result.",
		ConstLabels: labels,
	}, []string{"result"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "nbaflow_worker_outcomes_total",
		Help:        "Calculation events processed by the worker, by action.",
		ConstLabels: labels,
	}, []string{"action"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "nbaflow_worker_failures_total",
		Help:        "Calculation events dropped after a processing failure.",
		ConstLabels: labels,
	}, []string{"reason"})
	processLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "nbaflow_worker_process_duration_seconds",
		Help:        "Time spent processing a single calculation event.",
		Buckets:     []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		ConstLabels: labels,
	})
	queueWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "nbaflow_queue_wait_seconds",
		Help:        "Time between publish and consume.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		ConstLabels: labels,
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "nbaflow_queue_depth",
		Help:        "Calculation events waiting for the worker.",
		ConstLabels: labels,
	})
	discarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "nbaflow_queue_discarded_total",
		Help:        "Queued calculation events discarded at shutdown.",
		ConstLabels: labels,
	})
	enrichments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "nbaflow_enrichment_total",
		Help:        "Identifier enrichment attempts by filled field.",
		ConstLabels: labels,
	}, []string{"filled"})

	registerer.MustRegister(
		published,
		outcomes,
		failures,
		processLatency,
		queueWait,
		queueDepth,
		discarded,
		enrichments,
	)

	return &PipelineMetrics{
		published:      published,
		outcomes:       outcomes,
		failures:       failures,
		processLatency: processLatency,
		queueWait:      queueWait,
		queueDepth:     queueDepth,
		discarded:      discarded,
		enrichments:    enrichments,
	}
}

// IncPublished counts a publish attempt by result (accepted, queue_full, closed).
func (m *PipelineMetrics) IncPublished(result string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(result).Inc()
}

// IncOutcome counts a worker acknowledgment.
func (m *PipelineMetrics) IncOutcome(action string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(action).Inc()
}

// IncFailure counts a dropped event.
func (m *PipelineMetrics) IncFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}

// ObserveProcessDuration records worker latency for one event.
func (m *PipelineMetrics) ObserveProcessDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.processLatency.Observe(clampDuration(d).Seconds())
}

// ObserveQueueWait records how long an envelope sat in the queue.
func (m *PipelineMetrics) ObserveQueueWait(d time.Duration) {
	if m == nil {
		return
	}
	m.queueWait.Observe(clampDuration(d).Seconds())
}

// SetQueueDepth sets the current queue length.
func (m *PipelineMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// AddDiscarded counts envelopes dropped by the shutdown policy.
func (m *PipelineMetrics) AddDiscarded(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.discarded.Add(float64(count))
}

// IncEnrichment counts an enrichment attempt; filled is "none" when nothing changed.
func (m *PipelineMetrics) IncEnrichment(filled string) {
	if m == nil {
		return
	}
	if strings.TrimSpace(filled) == "" {
		filled = "none"
	}
	m.enrichments.WithLabelValues(filled).Inc()
}

func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
