package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	operationCalls      *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	pageCacheRequests   *prometheus.CounterVec
	pageFetchDuration   prometheus.Histogram
	apiLatency          *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec
	storeBackend        *prometheus.GaugeVec
	maintenanceRuns     *prometheus.CounterVec
	maintenanceDuration *prometheus.HistogramVec
	maintenanceLastRun  *prometheus.GaugeVec
	purgedEntries       prometheus.Counter
}

func newCollectors(namespace string) *collectors {
	buckets := prometheus.DefBuckets
	fetchBuckets := []float64{
		0.05, 0.1, 0.25, 0.5, // sub-second
		1, 2.5, 5, 10, 30,
	}

	return &collectors{
		operationCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_calls_total",
				Help:      "Instrumented operation invocations by result",
			},
			[]string{"operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of instrumented operations, hooks included",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		pageCacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "page_cache_requests_total",
				Help:      "Page cache lookups by outcome",
			},
			[]string{"result"},
		),
		pageFetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "page_fetch_duration_seconds",
				Help:      "Duration of upstream page fetches on cache misses",
				Buckets:   fetchBuckets,
			},
		),
		apiLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_latency_seconds",
				Help:      "API endpoint latency",
				Buckets:   buckets,
			},
			[]string{"method", "path", "status"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"path"},
		),
		storeBackend: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_backend_info",
				Help:      "Active key-value store backend (1 for the selected backend)",
			},
			[]string{"backend"},
		),
		maintenanceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_runs_total",
				Help:      "Maintenance job executions",
			},
			[]string{"job", "result"},
		),
		maintenanceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "maintenance_duration_seconds",
				Help:      "Maintenance job duration",
				Buckets:   buckets,
			},
			[]string{"job"},
		),
		maintenanceLastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "maintenance_last_success_timestamp",
				Help:      "Timestamp of the last successful maintenance run (seconds since epoch)",
			},
			[]string{"job"},
		),
		purgedEntries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purged_entries_total",
				Help:      "Expired cache rows removed by maintenance",
			},
		),
	}
}

func (c *collectors) all() []prometheus.Collector {
	return []prometheus.Collector{
		c.operationCalls,
		c.operationDuration,
		c.pageCacheRequests,
		c.pageFetchDuration,
		c.apiLatency,
		c.rateLimited,
		c.storeBackend,
		c.maintenanceRuns,
		c.maintenanceDuration,
		c.maintenanceLastRun,
		c.purgedEntries,
	}
}

// observeDuration records a duration in seconds on the supplied histogram observer.
func observeDuration(observer prometheus.Observer, d time.Duration) {
	if observer == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	observer.Observe(d.Seconds())
}
