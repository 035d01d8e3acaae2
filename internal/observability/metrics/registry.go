// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track read API request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsInFlight is the number of API requests currently being served
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	// HTTPResponseSize measures response body sizes in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)
)

// Ingest metrics track the polling pipeline
var (
	// ArticlesTotal tracks total number of archived articles
	ArticlesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "articles_total",
			Help: "Total number of articles in the archive",
		},
	)

	// FeedFetchesTotal counts feed fetches by result (ok, fetch_error, parse_error)
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetches_total",
			Help: "Total number of syndication feed fetches",
		},
		[]string{"result"},
	)

	// CandidatesTotal counts unique candidates discovered per source
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_candidates_total",
			Help: "Total number of unique article candidates discovered",
		},
		[]string{"source"},
	)

	// ArticlesInsertedTotal counts newly archived articles per source
	ArticlesInsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_articles_inserted_total",
			Help: "Total number of newly archived articles",
		},
		[]string{"source"},
	)

	// ArticlesSkippedTotal counts candidates that were not archived, by reason
	ArticlesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_articles_skipped_total",
			Help: "Total number of candidates skipped",
		},
		[]string{"source", "reason"},
	)

	// SourceFailuresTotal counts source passes aborted by an unexpected failure
	SourceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_source_failures_total",
			Help: "Total number of source passes that failed",
		},
		[]string{"source"},
	)

	// PassDuration measures a complete polling pass
	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_pass_duration_seconds",
			Help:    "Time taken by a full polling pass",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// RetrievalAttemptsTotal counts retrieval strategy attempts by outcome
	RetrievalAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_attempts_total",
			Help: "Total number of full-text retrieval strategy attempts",
		},
		[]string{"strategy", "result"},
	)

	// EnrichmentsTotal counts metadata enrichment calls by result (found, empty)
	EnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichments_total",
			Help: "Total number of page metadata enrichments",
		},
		[]string{"result"},
	)

	// ImageCacheTotal counts preview image cache lookups by result (hit, stored, failed)
	ImageCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_cache_total",
			Help: "Total number of preview image cache operations",
		},
		[]string{"result"},
	)
)

// Database metrics track store performance
var (
	// DBQueryDuration measures database query duration by operation
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)
