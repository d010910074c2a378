// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TripWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_settlement_trip_writes_total",
			Help: "Trip writes by operation and result",
		},
		[]string{"operation", "result"},
	)

	VersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_settlement_version_conflicts_total",
			Help: "Trip updates retried because another writer won",
		},
	)

	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_settlement_report_duration_seconds",
			Help:    "Report computation time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report"},
	)

	ReportRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_settlement_report_rows",
			Help:    "Rows returned per report",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"report"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_settlement_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_settlement_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveWrite counts a trip write.
func ObserveWrite(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TripWrites.WithLabelValues(operation, result).Inc()
}

// ObserveReport records how long a report took and how many rows it produced.
func ObserveReport(report string, start time.Time, rows int) {
	ReportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
	ReportRows.WithLabelValues(report).Observe(float64(rows))
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// WriteHeader records the status before delegating.
func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}
