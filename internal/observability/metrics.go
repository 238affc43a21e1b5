package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce     sync.Once
	lockAcquisitions *prometheus.CounterVec
	lockHoldSeconds  *prometheus.HistogramVec
	lockWaitSeconds  *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	httpErrors       *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for row-lock telemetry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		lockAcquisitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_lock_acquisitions_total",
			Help: "Total number of exclusive row locks acquired by the progression core.",
		}, []string{"pipeline", "entity_type"})

		lockHoldSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progression_lock_hold_seconds",
			Help:    "Time an exclusive row lock was held before release.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"pipeline", "entity_type"})

		lockWaitSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progression_lock_wait_seconds",
			Help:    "Time spent waiting to acquire an exclusive row lock.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"pipeline", "entity_type"})

		httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_http_requests_total",
			Help: "Total number of HTTP requests served by the progression API.",
		}, []string{"method", "route", "status"})

		httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progression_http_request_duration_seconds",
			Help:    "HTTP request latency for the progression API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

		httpErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_http_errors_total",
			Help: "Total number of HTTP error responses from the progression API.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(lockAcquisitions, lockHoldSeconds, lockWaitSeconds, httpRequests, httpLatency, httpErrors)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequests
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatency
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrors
}

// LockAcquisitions exposes the lock acquisition counter.
func LockAcquisitions() *prometheus.CounterVec {
	RegisterMetrics()
	return lockAcquisitions
}

// LockHold exposes the hold-duration histogram.
func LockHold() *prometheus.HistogramVec {
	RegisterMetrics()
	return lockHoldSeconds
}

// LockWait exposes the acquisition-wait histogram.
func LockWait() *prometheus.HistogramVec {
	RegisterMetrics()
	return lockWaitSeconds
}
