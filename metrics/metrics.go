package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DBStates lists every value of the state label on DBConnectionState.
var DBStates = []string{"idle", "connecting", "connected", "failed"}

var (
	// DBConnectionState is 1 for the current database connection state and 0 for the others.
	DBConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backend_db_connection_state",
			Help: "Current database connection state (1 for the active state)",
		},
		[]string{"state"},
	)

	DBConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_db_connect_attempts_total",
			Help: "Total number of database connection attempts by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_http_request_duration_seconds",
			Help:    "Time taken to handle HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// SetDBState marks state as the current database connection state.
func SetDBState(state string) {
	for _, s := range DBStates {
		if s == state {
			DBConnectionState.WithLabelValues(s).Set(1)
		} else {
			DBConnectionState.WithLabelValues(s).Set(0)
		}
	}
}
