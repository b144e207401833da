package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "libris_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "libris_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	loanOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "libris_loan_operations_total",
		Help: "Count of loan workflow operations by operation and result",
	}, []string{"operation", "result"})

	activeLoans = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "libris_active_loans",
		Help: "Number of loans currently in ACTIVE status",
	})

	overdueLoans = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "libris_overdue_loans",
		Help: "Number of ACTIVE loans past their due date",
	})

	bookCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "libris_book_cache_lookups_total",
		Help: "Book read cache lookups by outcome",
	}, []string{"outcome"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveLoanOperation increments the loan workflow counter.
func ObserveLoanOperation(operation, result string) {
	loanOperations.WithLabelValues(operation, result).Inc()
}

// IncrementActiveLoans increments the active loan gauge.
func IncrementActiveLoans() {
	activeLoans.Inc()
}

// DecrementActiveLoans decrements the active loan gauge.
func DecrementActiveLoans() {
	activeLoans.Dec()
}

// SetActiveLoans sets the active loan gauge to a known count.
func SetActiveLoans(count int64) {
	if count < 0 {
		count = 0
	}
	activeLoans.Set(float64(count))
}

// SetOverdueLoans sets the overdue loan gauge.
func SetOverdueLoans(count int64) {
	if count < 0 {
		count = 0
	}
	overdueLoans.Set(float64(count))
}

// ObserveBookCache records a book cache lookup outcome (hit, miss, bypass).
func ObserveBookCache(outcome string) {
	bookCacheLookups.WithLabelValues(outcome).Inc()
}
