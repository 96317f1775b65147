package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики процесса, отдаются на /metrics
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetodo_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	UploadDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timetodo_upload_decisions_total",
		Help: "Upload admission decisions by outcome and denial reason.",
	}, []string{"outcome", "reason"})

	LedgerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timetodo_usage_ledger_failures_total",
		Help: "Usage ledger writes that failed after a permitted upload.",
	})

	SnapshotsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timetodo_metric_snapshots_total",
		Help: "Metric snapshot rows appended by scope.",
	}, []string{"scope"})

	// event_type и category приходят от клиента, поэтому без лейблов
	EventsTracked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timetodo_events_tracked_total",
		Help: "Analytics events tracked.",
	})

	LimitsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timetodo_limits_cache_lookups_total",
		Help: "Effective limits cache lookups by result.",
	}, []string{"result"})
)

// RecordUploadDecision: reason пустой для разрешенной загрузки
func RecordUploadDecision(allowed bool, reason string) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	UploadDecisions.WithLabelValues(outcome, reason).Inc()
}
