package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageInFlight prometheus.Gauge
	llmCallsTotal *prometheus.CounterVec
	storedRows    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sgrt",
			Subsystem: "worker",
			Name:      "stage_total",
			Help:      "Total pipeline stage runs by stage and status.",
		},
		[]string{"service", "stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sgrt",
			Subsystem: "worker",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds by stage and status.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"service", "stage", "status"},
	)
	stageInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sgrt",
			Subsystem: "worker",
			Name:      "stage_in_flight",
			Help:      "Number of in-flight pipeline stages.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	llmCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sgrt",
			Subsystem: "worker",
			Name:      "llm_calls_total",
			Help:      "Total LLM calls by operation and status.",
		},
		[]string{"service", "operation", "status"},
	)
	storedRows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sgrt",
			Subsystem: "worker",
			Name:      "stored_rows_total",
			Help:      "Total rows upserted by table.",
		},
		[]string{"service", "table"},
	)

	registry.MustRegister(stageTotal, stageDuration, stageInFlight, llmCallsTotal, storedRows)

	return &WorkerMetrics{
		registry:      registry,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		stageInFlight: stageInFlight,
		llmCallsTotal: llmCallsTotal,
		storedRows:    storedRows,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartStage() {
	m.stageInFlight.Inc()
}

func (m *WorkerMetrics) FinishStage(service, stage string, duration time.Duration, err error) {
	m.stageInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.stageTotal.WithLabelValues(service, stage, status).Inc()
	m.stageDuration.WithLabelValues(service, stage, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveLLMCall(service, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.llmCallsTotal.WithLabelValues(service, operation, status).Inc()
}

func (m *WorkerMetrics) AddStoredRows(service, table string, n int) {
	if n <= 0 {
		return
	}
	m.storedRows.WithLabelValues(service, table).Add(float64(n))
}
