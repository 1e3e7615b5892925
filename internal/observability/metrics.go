package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conduit_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FavoriteToggles counts favorite add/remove calls by whether they changed state.
	FavoriteToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_favorite_toggles_total",
		Help: "Favorite toggles by action and whether a row changed",
	}, []string{"action", "changed"})

	// FollowChanges counts follow/unfollow calls by whether they changed state.
	FollowChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_follow_changes_total",
		Help: "Follow graph changes by action and whether an edge changed",
	}, []string{"action", "changed"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

func changedLabel(changed bool) string {
	if changed {
		return "true"
	}
	return "false"
}

// RecordFavoriteToggle counts one favorite add or remove.
func RecordFavoriteToggle(action string, changed bool) {
	FavoriteToggles.WithLabelValues(action, changedLabel(changed)).Inc()
}

// RecordFollowChange counts one follow or unfollow.
func RecordFollowChange(action string, changed bool) {
	FollowChanges.WithLabelValues(action, changedLabel(changed)).Inc()
}
