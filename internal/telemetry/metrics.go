package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты для label "result".
const (
	ResultRan      = "ran"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
	ResultSent     = "sent"
	ResultNotFound = "not_found"
	ResultAcquired = "acquired"
	ResultBusy     = "busy"
	ResultStale    = "recovered"
)

var (
	// LockAttempts — попытки захвата execution lock.
	LockAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_lock_attempts_total",
			Help: "Execution lock acquisition attempts by result",
		},
		[]string{"name", "result"},
	)

	// SchedulerTicks — тики scheduler по результату (ran, skipped, failed).
	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_scheduler_ticks_total",
			Help: "Scheduler ticks by result",
		},
		[]string{"result"},
	)

	// ScanDuration — длительность одного прохода сканера.
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadflow_scan_duration_seconds",
			Help:    "Duration of a stall scan in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StalledPairs — найденные пары (lead, rule).
	StalledPairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadflow_stalled_pairs_total",
			Help: "Total number of stalled (lead, rule) pairs found",
		},
	)

	// Dispatched — поставленные в очередь follow-up по результату.
	Dispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_dispatch_total",
			Help: "Follow-up dispatches by result",
		},
		[]string{"result"},
	)

	// Followups — обработанные воркером follow-up по результату.
	Followups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_followups_total",
			Help: "Follow-ups processed by the worker by result",
		},
		[]string{"result"},
	)

	// SendDuration — длительность отправки SMS.
	SendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadflow_sms_send_duration_seconds",
			Help:    "Duration of the SMS send effect in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// MQConnected — 1, пока соединение с RabbitMQ открыто.
	MQConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadflow_mq_connected",
			Help: "Whether the RabbitMQ connection is open",
		},
	)

	// MQReconnects — успешные переподключения к RabbitMQ.
	MQReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadflow_mq_reconnects_total",
			Help: "Total number of RabbitMQ reconnects",
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "pattern", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadflow_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "pattern"},
	)
)

// ObserveHTTP записывает метрики одного HTTP запроса.
func ObserveHTTP(method, pattern, status string, seconds float64) {
	httpRequests.WithLabelValues(method, pattern, status).Inc()
	httpDuration.WithLabelValues(method, pattern).Observe(seconds)
}
