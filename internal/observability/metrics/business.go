package metrics

import (
	"time"
)

// Retrieval outcomes recorded per strategy attempt.
const (
	RetrievalSuccess  = "success"
	RetrievalRejected = "rejected"
	RetrievalError    = "error"
)

// RecordFeedFetch records the result of a single feed fetch.
func RecordFeedFetch(result string) {
	FeedFetchesTotal.WithLabelValues(result).Inc()
}

// RecordSourcePass records the outcome of one source within a pass.
func RecordSourcePass(source string, candidates, inserted int) {
	CandidatesTotal.WithLabelValues(source).Add(float64(candidates))
	ArticlesInsertedTotal.WithLabelValues(source).Add(float64(inserted))
}

// RecordSkipped records a candidate that was not archived.
// Reason is one of "exists", "conflict" or "error".
func RecordSkipped(source, reason string) {
	ArticlesSkippedTotal.WithLabelValues(source, reason).Inc()
}

// RecordSourceFailure records a source pass aborted by an unexpected failure.
func RecordSourceFailure(source string) {
	SourceFailuresTotal.WithLabelValues(source).Inc()
}

// RecordPassDuration records the wall time of a full polling pass.
func RecordPassDuration(d time.Duration) {
	PassDuration.Observe(d.Seconds())
}

// RecordRetrievalAttempt records one strategy attempt.
func RecordRetrievalAttempt(strategy, result string) {
	RetrievalAttemptsTotal.WithLabelValues(strategy, result).Inc()
}

// RecordEnrichment records whether enrichment found any metadata.
func RecordEnrichment(found bool) {
	result := "found"
	if !found {
		result = "empty"
	}
	EnrichmentsTotal.WithLabelValues(result).Inc()
}

// RecordImageCache records a preview image cache operation.
func RecordImageCache(result string) {
	ImageCacheTotal.WithLabelValues(result).Inc()
}

// UpdateArticlesTotal updates the total count of archived articles.
func UpdateArticlesTotal(count int64) {
	ArticlesTotal.Set(float64(count))
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "insert_article", "search_articles").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records one API request.
// Path must already be normalized to a route template.
func RecordHTTPRequest(method, path, status string, duration time.Duration, size int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
}
