package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"method", "path"},
	)

	dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "query_db_connections_open",
			Help: "Number of open database connections",
		},
		[]string{"db"},
	)

	dbConnectionsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "query_db_connections_in_use",
			Help: "Number of database connections currently in use",
		},
		[]string{"db"},
	)

	dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "query_db_connections_idle",
			Help: "Number of idle database connections",
		},
		[]string{"db"},
	)

	functionInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_function_invocations_total",
			Help: "Total number of function invocations",
		},
		[]string{"function", "runtime", "status"},
	)

	functionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_function_duration_seconds",
			Help:    "Function execution time in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"function", "runtime"},
	)

	cacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "query_cache_entries",
			Help: "Number of entries currently held in each named cache",
		},
		[]string{"cache"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int) {
	statusStr := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

func IncrementInFlight() {
	httpRequestsInFlight.Inc()
}

func DecrementInFlight() {
	httpRequestsInFlight.Dec()
}

// UpdateDBStats reports sql.DB pool stats for one of the catalog's two
// SQLite connections, labeled "config" or "function".
func UpdateDBStats(db string, open, inUse, idle int) {
	dbConnectionsOpen.WithLabelValues(db).Set(float64(open))
	dbConnectionsInUse.WithLabelValues(db).Set(float64(inUse))
	dbConnectionsIdle.WithLabelValues(db).Set(float64(idle))
}

func RecordFunctionInvocation(name, runtime, status string, duration time.Duration) {
	functionInvocations.WithLabelValues(name, runtime, status).Inc()
	functionDuration.WithLabelValues(name, runtime).Observe(duration.Seconds())
}

// RecordCacheStats reports the current entry count for one of the four
// named caches (asset, function, path, function_response).
func RecordCacheStats(name string, entries int64) {
	cacheEntries.WithLabelValues(name).Set(float64(entries))
}
