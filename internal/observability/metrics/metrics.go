package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamhub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teamhub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	teamOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamhub_team_operations_total",
		Help: "Count of team and invite operations by result",
	}, []string{"operation", "result"})

	activityWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamhub_activity_write_failures_total",
		Help: "Activity entries dropped because the store rejected them",
	})

	teamCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamhub_team_cache_lookups_total",
		Help: "Team cache lookups by result",
	}, []string{"result"})

	teamsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teamhub_teams",
		Help: "Number of teams",
	})

	pendingInvites = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teamhub_pending_invites",
		Help: "Number of invites awaiting a response",
	})

	activitySubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teamhub_activity_stream_subscribers",
		Help: "Open websocket activity streams",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveTeamOperation counts one service operation. result is "ok" or the
// error kind that ended it.
func ObserveTeamOperation(operation, result string) {
	teamOperations.WithLabelValues(operation, result).Inc()
}

// ActivityWriteFailed counts an activity entry that could not be stored
func ActivityWriteFailed() {
	activityWriteFailures.Inc()
}

// ObserveTeamCache records a cache hit or miss
func ObserveTeamCache(hit bool) {
	if hit {
		teamCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	teamCacheLookups.WithLabelValues("miss").Inc()
}

// SetTeams sets the team gauge
func SetTeams(count int) {
	teamsTotal.Set(float64(max(count, 0)))
}

// SetPendingInvites sets the pending invite gauge
func SetPendingInvites(count int) {
	pendingInvites.Set(float64(max(count, 0)))
}

// StreamOpened increments the open activity stream gauge.
func StreamOpened() {
	activitySubscribers.Inc()
}

// StreamClosed decrements the open activity stream gauge.
func StreamClosed() {
	activitySubscribers.Dec()
}
