// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Recording metrics
	EventsRecorded    *prometheus.CounterVec
	EventsRejected    *prometheus.CounterVec
	LastEventRecorded prometheus.Gauge

	// Statistics metrics
	StatsComputed prometheus.Counter
	StatsDuration prometheus.Histogram
	StatsErrors   prometheus.Counter
	CacheRequests *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Delivery metrics
	WSClients     prometheus.Gauge
	WSBroadcasts  prometheus.Counter
	QueueMessages *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pawlog"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EventsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "recorded_total",
			Help:      "Total number of events recorded by type",
		}, []string{"event_type"}),
		EventsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "rejected_total",
			Help:      "Total number of events rejected by reason",
		}, []string{"reason"}),
		LastEventRecorded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "last_recorded_timestamp",
			Help:      "Unix time at which the last event was recorded (not the event's own timestamp)",
		}),

		StatsComputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "computed_total",
			Help:      "Total number of statistics summaries computed from the store",
		}),
		StatsDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "compute_duration_seconds",
			Help:      "Statistics computation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StatsErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "errors_total",
			Help:      "Total number of failed statistics computations",
		}),
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Summary cache lookups by result (hit, miss, error)",
		}, []string{"result"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Number of connected websocket clients",
		}),
		WSBroadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "broadcasts_total",
			Help:      "Total number of summaries broadcast to websocket clients",
		}),
		QueueMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "messages_total",
			Help:      "Queue messages consumed by status (recorded, duplicate, invalid, failed)",
		}, []string{"status"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordEventRecorded increments the recorded counter for eventType.
// recordedAt is the wall-clock time of the write.
func RecordEventRecorded(eventType string, recordedAt time.Time) {
	DefaultMetrics.EventsRecorded.WithLabelValues(eventType).Inc()
	DefaultMetrics.LastEventRecorded.Set(float64(recordedAt.Unix()))
}

// RecordEventRejected increments the rejected counter for reason.
func RecordEventRejected(reason string) {
	DefaultMetrics.EventsRejected.WithLabelValues(reason).Inc()
}

// RecordStatsComputed records one statistics computation.
func RecordStatsComputed(seconds float64, err error) {
	if err != nil {
		DefaultMetrics.StatsErrors.Inc()
		return
	}
	DefaultMetrics.StatsComputed.Inc()
	DefaultMetrics.StatsDuration.Observe(seconds)
}

// RecordCacheResult records a summary cache lookup result.
func RecordCacheResult(result string) {
	DefaultMetrics.CacheRequests.WithLabelValues(result).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetWSClients updates the connected websocket clients gauge.
func SetWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}

// RecordWSBroadcast increments the websocket broadcast counter.
func RecordWSBroadcast() {
	DefaultMetrics.WSBroadcasts.Inc()
}

// RecordQueueMessage records one consumed queue message by status.
func RecordQueueMessage(status string) {
	DefaultMetrics.QueueMessages.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, code int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(route).Observe(seconds)
}
