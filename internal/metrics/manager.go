// Package metrics holds the Prometheus instruments exported by fitlog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "fitlog"
	Subsystem = "server"
)

type Manager struct {
	// http
	CounterRequests     *prometheus.CounterVec
	GaugeRequests       prometheus.Gauge
	HistRequestDuration prometheus.Histogram

	// ingest
	CounterImports          *prometheus.CounterVec
	CounterImportedWorkouts *prometheus.CounterVec

	// exercise lookup
	CounterLookups     *prometheus.CounterVec
	CounterLookupCache *prometheus.CounterVec

	// outbox
	CounterEventsDelivered prometheus.Counter
	CounterEventsFailed    prometheus.Counter
	HistDispatchDuration   prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager(Namespace, "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager(Namespace, "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Total duration of requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 60},
		}),

		CounterImports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "imports_total",
			Help:      "Ingest runs by source and outcome",
		}, []string{"source", "status"}),
		CounterImportedWorkouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "imported_workouts_total",
			Help:      "Workouts written by ingest, by source and action",
		}, []string{"source", "action"}),

		CounterLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "exercise_lookups_total",
			Help:      "Exercise lookups by backend and result",
		}, []string{"backend", "result"}),
		CounterLookupCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "exercise_lookup_cache_total",
			Help:      "External exercise lookup cache hits and misses",
		}, []string{"result"}),

		CounterEventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_delivered_total",
			Help:      "Number of outbox events successfully published to Kafka",
		}),
		CounterEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_failed_total",
			Help:      "Number of outbox events that failed to publish and were released for retry",
		}),
		HistDispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batch_duration_seconds",
			Help:      "Time spent claiming, delivering and marking outbox batches",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}
}
