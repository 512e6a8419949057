package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// UserOperationsTotal counts account mutations by operation (create, update, delete).
	UserOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_operations_total",
			Help: "Total number of user account mutations by operation",
		},
		[]string{"operation"},
	)

	// LoginAttemptsTotal counts login attempts by result (success, failure).
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	// AuditEntriesPrunedTotal counts audit rows removed by the retention sweep.
	AuditEntriesPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_pruned_total",
			Help: "Total number of audit log entries removed by retention",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, UserOperationsTotal, LoginAttemptsTotal, AuditEntriesPrunedTotal)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /users/123 -> /users/{id}.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// IncUserOperation increments the mutation counter for the given operation (create, update, delete).
func IncUserOperation(operation string) {
	UserOperationsTotal.WithLabelValues(operation).Inc()
}

// IncLoginAttempt increments the login counter for the given result (success, failure).
func IncLoginAttempt(result string) {
	LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// AddAuditPruned adds n to the retention sweep counter.
func AddAuditPruned(n int64) {
	if n > 0 {
		AuditEntriesPrunedTotal.Add(float64(n))
	}
}
