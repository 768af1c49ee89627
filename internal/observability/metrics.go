// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// CommentsCreated counts comments created per course.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialcomments_comments_created_total",
		Help: "Total number of comments created",
	})

	// RepliesCreated counts replies created.
	RepliesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialcomments_replies_created_total",
		Help: "Total number of replies created",
	})

	// DigestRuns counts scheduled digest runs by outcome.
	DigestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialcomments_digest_runs_total",
		Help: "Total number of scheduled digest runs by outcome",
	}, []string{"outcome"})

	// DigestsSent counts digest messages delivered, labeled by digest mode.
	DigestsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialcomments_digests_sent_total",
		Help: "Total number of digest messages delivered",
	}, []string{"mode"})

	// DigestFailures counts digest delivery failures, labeled by digest mode.
	DigestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialcomments_digest_failures_total",
		Help: "Total number of digest delivery failures",
	}, []string{"mode"})

	// DigestRunDuration records the wall-clock duration of one scheduled run.
	DigestRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "socialcomments_digest_run_duration_seconds",
		Help:    "Duration of a scheduled digest run in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialcomments_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
