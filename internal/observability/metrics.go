package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for account metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeMiss      = "miss"
	OutcomeMismatch  = "mismatch"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

var (
	// LoginAttempts counts login attempts by outcome.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"outcome"})

	// Registrations counts registration attempts by outcome.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_registrations_total",
		Help: "Total number of registration attempts by outcome",
	}, []string{"outcome"})

	// PasswordHashDuration records bcrypt hashing latency.
	PasswordHashDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "folio_password_hash_duration_seconds",
		Help:    "Time spent hashing passwords",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PhotoUploads counts processed photo uploads by kind.
	PhotoUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_photo_uploads_total",
		Help: "Total number of processed photo uploads",
	}, []string{"kind"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
