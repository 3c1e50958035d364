package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unheard_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "unheard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SecondaryEffectsTotal counts background writes by effect and outcome
	// (ok, failed, dropped).
	SecondaryEffectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unheard_secondary_effects_total",
		Help: "Secondary effects processed by effect and outcome",
	}, []string{"effect", "outcome"})

	// ReactionTogglesTotal counts reaction toggles by result (added, removed).
	ReactionTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unheard_reaction_toggles_total",
		Help: "Reaction toggles by result",
	}, []string{"result"})

	// SessionsIssuedTotal counts anonymous sessions by how they were obtained.
	SessionsIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unheard_sessions_issued_total",
		Help: "Anonymous sessions issued by kind (created, recovered)",
	}, []string{"kind"})

	// SingleflightSharedTotal counts callers that received another caller's
	// in-flight result instead of doing the work themselves.
	SingleflightSharedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unheard_singleflight_shared_total",
		Help: "Calls answered by a concurrent identical call, by group",
	}, []string{"group"})

	// EnrichLatency records how long enriching one batch of confessions takes.
	EnrichLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "unheard_enrich_batch_latency_seconds",
		Help:    "Latency of enriching a batch of confessions",
		Buckets: prometheus.DefBuckets,
	})

	// EnrichFailuresTotal counts confessions returned unenriched.
	EnrichFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unheard_enrich_failures_total",
		Help: "Confessions returned without comments and reactions after a fetch failure",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveSince records the seconds elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
