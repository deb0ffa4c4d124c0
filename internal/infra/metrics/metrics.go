// Package metrics holds the Prometheus collectors shared by the url-service and the
// ingestor. All collectors register on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP requests partitioned by method, route pattern and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Allocations partitioned by kind (custom, random) and result
	AllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortcode_allocations_total",
			Help: "Short-code allocation attempts by kind and result",
		},
		[]string{"kind", "result"},
	)

	// Resolutions partitioned by result (hit, miss, invalid, error)
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortcode_resolutions_total",
			Help: "Short-code resolutions by result",
		},
		[]string{"result"},
	)

	ClickEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "click_events_dropped_total",
			Help: "Click events discarded because the publish queue was full",
		},
	)

	// Publish attempts partitioned by result (ok, error)
	ClickEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_events_published_total",
			Help: "Click event publish attempts by result",
		},
		[]string{"result"},
	)

	ClickQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "click_events_queue_depth",
			Help: "Click events buffered awaiting publish",
		},
	)

	// Ingestor outcomes: acked, duplicate, rejected_discard, rejected_requeue
	IngestOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_ingest_outcomes_total",
			Help: "Click event ingestion outcomes",
		},
		[]string{"outcome"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "click_ingest_duration_seconds",
			Help:    "Time from receipt to settlement of a click event",
			Buckets: prometheus.DefBuckets,
		},
	)
)
