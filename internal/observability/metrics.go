// Package observability holds the Prometheus collectors shared by the
// analytics, ingest and HTTP layers.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	routeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlytics",
		Subsystem: "analytics",
		Name:      "route_total",
		Help:      "Number of period queries grouped by metric and the source they were answered from.",
	}, []string{"metric", "route"})

	fallbackCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlytics",
		Name:      "precomputed_fallback_total",
		Help:      "Number of precomputed reads that failed or came back empty and were answered with no rows.",
	}, []string{"metric", "reason"})

	cacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlytics",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Redis rollup cache lookups grouped by result.",
	}, []string{"result"})

	ingestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlytics",
		Subsystem: "ingest",
		Name:      "activities_total",
		Help:      "Number of activities ingested grouped by source and outcome.",
	}, []string{"source", "outcome"})

	lastIngestGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runlytics",
		Subsystem: "ingest",
		Name:      "last_activity_timestamp_seconds",
		Help:      "Unix start time of the most recently ingested activity.",
	})

	rebuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runlytics",
		Subsystem: "rollups",
		Name:      "rebuild_duration_seconds",
		Help:      "Time spent rebuilding the precomputed rollup tables.",
		Buckets:   prometheus.DefBuckets,
	})

	rebuildCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlytics",
		Subsystem: "rollups",
		Name:      "rebuilds_total",
		Help:      "Number of rollup rebuilds grouped by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	eventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlytics",
		Subsystem: "events",
		Name:      "messages_total",
		Help:      "Activity events grouped by direction and outcome.",
	}, []string{"direction", "outcome"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlytics",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests grouped by route and status code.",
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(
		routeCounter,
		fallbackCounter,
		cacheCounter,
		ingestCounter,
		lastIngestGauge,
		rebuildDuration,
		rebuildCounter,
		eventCounter,
		httpRequests,
	)
}

// RecordRoute counts which source answered a period query
func RecordRoute(metric, route string) {
	routeCounter.WithLabelValues(metric, route).Inc()
}

// RecordFallback counts a precomputed read that was replaced by an empty result.
// reason is "error" or "empty".
func RecordFallback(metric, reason string) {
	fallbackCounter.WithLabelValues(metric, reason).Inc()
}

// RecordCacheLookup counts a Redis lookup. result is "hit", "miss" or "error".
func RecordCacheLookup(result string) {
	cacheCounter.WithLabelValues(result).Inc()
}

// RecordIngest counts an ingested activity and advances the watermark gauge
// on success.
func RecordIngest(source, outcome string, start time.Time) {
	ingestCounter.WithLabelValues(source, outcome).Inc()
	if outcome == "ok" && !start.IsZero() {
		lastIngestGauge.Set(float64(start.Unix()))
	}
}

// RecordRebuild observes one rollup rebuild
func RecordRebuild(trigger string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	rebuildCounter.WithLabelValues(trigger, outcome).Inc()
	if err == nil {
		rebuildDuration.Observe(elapsed.Seconds())
	}
}

// RecordEvent counts a published or consumed activity event
func RecordEvent(direction, outcome string) {
	eventCounter.WithLabelValues(direction, outcome).Inc()
}

// RecordHTTPRequest counts a served HTTP request
func RecordHTTPRequest(route string, status int) {
	httpRequests.WithLabelValues(route, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
