package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSourcePass(t *testing.T) {
	before := testutil.ToFloat64(ArticlesInsertedTotal.WithLabelValues("metrics-test"))

	RecordSourcePass("metrics-test", 5, 2)

	assert.Equal(t, before+2, testutil.ToFloat64(ArticlesInsertedTotal.WithLabelValues("metrics-test")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(CandidatesTotal.WithLabelValues("metrics-test")), 5.0)
}

func TestRecordRetrievalAttempt(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		result   string
	}{
		{name: "direct success", strategy: "direct", result: RetrievalSuccess},
		{name: "proxy rejected", strategy: "12ft.io", result: RetrievalRejected},
		{name: "browser error", strategy: "browser", result: RetrievalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(RetrievalAttemptsTotal.WithLabelValues(tt.strategy, tt.result))
			RecordRetrievalAttempt(tt.strategy, tt.result)
			after := testutil.ToFloat64(RetrievalAttemptsTotal.WithLabelValues(tt.strategy, tt.result))
			assert.Equal(t, before+1, after)
		})
	}
}

func TestRecordEnrichment(t *testing.T) {
	before := testutil.ToFloat64(EnrichmentsTotal.WithLabelValues("empty"))
	RecordEnrichment(false)
	assert.Equal(t, before+1, testutil.ToFloat64(EnrichmentsTotal.WithLabelValues("empty")))
}

func TestUpdateArticlesTotal(t *testing.T) {
	UpdateArticlesTotal(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(ArticlesTotal))
}

func TestRecorders_DoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordFeedFetch("ok")
		RecordSkipped("metrics-test", "exists")
		RecordSourceFailure("metrics-test")
		RecordPassDuration(3 * time.Second)
		RecordImageCache("hit")
		RecordDBQuery("insert_article", 5*time.Millisecond)
		RecordHTTPRequest("GET", "/articles", "200", 10*time.Millisecond, 512)
	})
}
