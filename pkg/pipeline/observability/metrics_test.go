package observability

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterAndServe(t *testing.T) {
	m := NewMetrics()

	m.Processed.WithLabelValues("Coaching", "direct_title").Inc()
	m.Failures.WithLabelValues("rate_limit").Inc()
	m.Duplicates.Inc()
	m.ResolveDuration.Observe(0.01)
	m.Confidence.Observe(85)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "sessionarc_pipeline_recordings_processed_total"))
	assert.True(t, strings.Contains(body, `category="Coaching"`))
	assert.True(t, strings.Contains(body, "sessionarc_pipeline_recordings_failed_total"))
	assert.True(t, strings.Contains(body, "sessionarc_pipeline_recordings_duplicate_total 1"))
	assert.True(t, strings.Contains(body, "sessionarc_pipeline_resolve_duration_seconds"))
}

func TestSeparateRegistries(t *testing.T) {
	// Two pipelines in one process must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()
	a.Duplicates.Inc()
	assert.NotSame(t, a.Registry(), b.Registry())
}
