// Package metrics owns the process metric registry and the interceptors
// feeding it: the HTTP request middleware, the statement recorder, and the
// pool gauge refresh.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/louisbranch/datapulse/internal/platform/storage/sqltrace"
)

// requestDurationBuckets match the latency ranges existing dashboards key on.
var requestDurationBuckets = []float64{0.1, 0.3, 0.5, 1, 3, 5}

// Metrics holds every instrument published on the scrape endpoint. All
// instruments live on a private registry so two instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	inProgressRequests prometheus.Gauge

	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec

	poolCheckedOut prometheus.Gauge
	poolIdle       prometheus.Gauge
	poolWaiters    prometheus.Gauge
}

// New builds the full instrument set. Registration happens exactly once per
// instrument and panics on duplicate names or label sets, so wiring mistakes
// surface at startup rather than at scrape time.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "http_status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: requestDurationBuckets,
		}, []string{"method", "endpoint", "http_status"}),

		inProgressRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inprogress_requests",
			Help: "In-progress HTTP requests",
		}),

		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		}, []string{"operation"}),

		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "db_query_duration_seconds",
			Help: "Duration of database queries in seconds",
		}, []string{"operation"}),

		poolCheckedOut: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_checked_out_connections",
			Help: "Number of connections currently checked out from the pool",
		}),

		poolIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_idle_connections",
			Help: "Number of idle connections in the pool",
		}),

		poolWaiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_waiters",
			Help: "Number of callers that waited for a connection",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.inProgressRequests,
		m.queriesTotal,
		m.queryDuration,
		m.poolCheckedOut,
		m.poolIdle,
		m.poolWaiters,
	)

	return m
}

// ObserveQuery records one executed statement under its operation label.
func (m *Metrics) ObserveQuery(operation string, duration time.Duration) {
	m.queriesTotal.WithLabelValues(operation).Inc()
	m.queryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

var _ sqltrace.Recorder = (*Metrics)(nil)
