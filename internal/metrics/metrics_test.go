package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecordSchedule(t *testing.T) {
	m := New()
	m.RecordSchedule(12, false, 0.002)
	m.RecordSchedule(9, true, 0.001)

	body := scrape(t, m)
	assert.Contains(t, body, `plandeck_schedules_total{outcome="ok"} 1`)
	assert.Contains(t, body, `plandeck_schedules_total{outcome="degraded"} 1`)
	assert.Contains(t, body, `plandeck_structural_anomalies_total 1`)
	assert.Contains(t, body, `plandeck_tasks_scheduled 9`)
}

func TestRecordCacheAndErrors(t *testing.T) {
	m := New()
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordHTTPError("404", "/api/v1/projects/:slug")
	m.RecordNotification("sent")

	body := scrape(t, m)
	assert.Contains(t, body, `plandeck_plan_cache_requests_total{result="hit"} 1`)
	assert.Contains(t, body, `plandeck_plan_cache_requests_total{result="miss"} 2`)
	assert.Contains(t, body, `plandeck_http_errors_total{route="/api/v1/projects/:slug",status="404"} 1`)
	assert.Contains(t, body, `plandeck_notifications_total{result="sent"} 1`)
}
