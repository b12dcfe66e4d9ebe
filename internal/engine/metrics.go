package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: от начала валидации до ответа агента
	RequestDuration *prometheus.HistogramVec

	// Traffic: маршрутизированные запросы по итогу
	TotalRequests *prometheus.CounterVec

	// Errors: отказы до диспетчеризации (в аудит не попадают)
	RejectedTotal *prometheus.CounterVec

	// Saturation: состояние предохранителя по агенту (0 - closed, 0.5 - half-open, 1 - open)
	CircuitBreakerState *prometheus.GaugeVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge

	// Audit: удалено ключей при очистке
	AuditSweepDeleted prometheus.Counter

	// Orchestrator: обработанные бандлы
	BundlesTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linc_request_duration_seconds",
			Help:    "Histogram of routed request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"agent", "task", "outcome"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "linc_requests_total",
			Help: "Total number of routed requests by outcome.",
		}, []string{"agent", "task", "outcome"}),

		RejectedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "linc_rejected_total",
			Help: "Requests rejected before dispatch.",
		}, []string{"reason"}), // bad_request, agent_not_found, task_not_allowed, rate_limited

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "linc_circuit_breaker_state",
			Help: "Current state of the per-agent circuit breaker (0=closed, 0.5=half-open, 1=open).",
		}, []string{"agent"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "linc_audit_buffer_utilization",
			Help: "Current number of entries in audit buffer.",
		}),

		AuditSweepDeleted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "linc_audit_sweep_deleted_total",
			Help: "Audit log keys deleted by the retention sweep.",
		}),

		BundlesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "linc_orchestrator_bundles_total",
			Help: "Bundles classified and routed by the orchestrator.",
		}, []string{"message_type", "target_agent", "forward_status"}),
	}
}
