// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Launch metrics
	LaunchesCreated  prometheus.Counter
	Transitions      *prometheus.CounterVec
	Contributions    prometheus.Counter
	ContributedValue prometheus.Counter
	Rejections       *prometheus.CounterVec

	// Settlement metrics
	Settlements         *prometheus.CounterVec
	ReentrancyRejected  *prometheus.CounterVec
	TokenCallLatency    *prometheus.HistogramVec
	SettlementsInFlight prometheus.Gauge

	// Event metrics
	EventsAppended *prometheus.CounterVec
	EventsDropped  prometheus.Counter
	Subscribers    prometheus.Gauge
	ArchiveErrors  prometheus.Counter

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "token_launchpad"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Launch metrics
		LaunchesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "created_total",
			Help:      "Total number of launches created",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "transitions_total",
			Help:      "Total number of launch status transitions by target status",
		}, []string{"to"}),
		Contributions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "contributions_total",
			Help:      "Total number of accepted contributions",
		}),
		ContributedValue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "contributed_value_total",
			Help:      "Accepted contribution value, approximated as float",
		}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "rejections_total",
			Help:      "Total number of rejected operations by operation and error code",
		}, []string{"operation", "code"}),

		// Settlement metrics
		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "total",
			Help:      "Total number of settlements by kind and final status",
		}, []string{"kind", "status"}),
		ReentrancyRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "reentrancy_rejected_total",
			Help:      "Total number of guarded operations rejected while a call was in flight",
		}, []string{"operation"}),
		TokenCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "call_latency_seconds",
			Help:      "Token contract call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		SettlementsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "in_flight",
			Help:      "Number of external token calls currently outstanding",
		}),

		// Event metrics
		EventsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "appended_total",
			Help:      "Total number of events appended by type",
		}, []string{"type"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total number of events dropped for slow stream subscribers",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Current number of event stream subscribers",
		}),
		ArchiveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "archive_errors_total",
			Help:      "Total number of failed event archive writes",
		}),

		// HTTP metrics
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		// Database metrics
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
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordLaunchCreated increments the launches created counter.
func RecordLaunchCreated() {
	DefaultMetrics.LaunchesCreated.Inc()
}

// RecordTransition records a status transition.
func RecordTransition(to string) {
	DefaultMetrics.Transitions.WithLabelValues(to).Inc()
}

// RecordContribution records an accepted contribution of value.
func RecordContribution(value float64) {
	DefaultMetrics.Contributions.Inc()
	DefaultMetrics.ContributedValue.Add(value)
}

// RecordRejection records an operation rejected with code.
func RecordRejection(operation, code string) {
	DefaultMetrics.Rejections.WithLabelValues(operation, code).Inc()
}

// RecordReentrancy records a guarded operation rejected by the guard.
func RecordReentrancy(operation string) {
	DefaultMetrics.ReentrancyRejected.WithLabelValues(operation).Inc()
}

// RecordSettlement records a settlement reaching status after a call of seconds.
func RecordSettlement(kind, status string, seconds float64) {
	DefaultMetrics.Settlements.WithLabelValues(kind, status).Inc()
	DefaultMetrics.TokenCallLatency.WithLabelValues(kind).Observe(seconds)
}

// RecordEventAppended counts an appended event.
func RecordEventAppended(eventType string) {
	DefaultMetrics.EventsAppended.WithLabelValues(eventType).Inc()
}

// RecordEventDropped counts an event not delivered to a subscriber.
func RecordEventDropped() {
	DefaultMetrics.EventsDropped.Inc()
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, route, status string, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
