package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce                sync.Once
	adminRequestsTotal          *prometheus.CounterVec
	adminLatencySeconds         *prometheus.HistogramVec
	adminErrorsTotal            *prometheus.CounterVec
	assignmentsCreatedTotal     *prometheus.CounterVec
	assignmentsSkippedTotal     *prometheus.CounterVec
	completionTransitionsTotal  *prometheus.CounterVec
	assignmentListingCacheTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		assignmentsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assignments_created_total",
			Help: "Assignment rows written by bulk fan-out.",
		}, []string{"item_kind", "audience_type"})

		assignmentsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assignments_skipped_total",
			Help: "Fan-out pairs skipped because the assignment already existed.",
		}, []string{"item_kind", "audience_type"})

		completionTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "completion_transitions_total",
			Help: "Completion status writes by target status.",
		}, []string{"status"})

		assignmentListingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assignment_listing_cache_total",
			Help: "Assignment listing cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
			assignmentsCreatedTotal,
			assignmentsSkippedTotal,
			completionTransitionsTotal,
			assignmentListingCacheTotal,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// AssignmentsCreated exposes the fan-out insert counter.
func AssignmentsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return assignmentsCreatedTotal
}

// AssignmentsSkipped exposes the fan-out duplicate counter.
func AssignmentsSkipped() *prometheus.CounterVec {
	RegisterMetrics()
	return assignmentsSkippedTotal
}

// CompletionTransitions exposes the completion write counter.
func CompletionTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return completionTransitionsTotal
}

// AssignmentListingCache exposes the listing cache hit/miss counter.
func AssignmentListingCache() *prometheus.CounterVec {
	RegisterMetrics()
	return assignmentListingCacheTotal
}
