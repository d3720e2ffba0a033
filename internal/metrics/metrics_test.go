package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/executor"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_ObserveHook(t *testing.T) {
	m := New()
	m.ObserveHook("repository:upsert", "repository-sync", "success")
	m.ObserveHook("repository:upsert", "repository-sync", "success")
	m.ObserveHook("user:upsert", "user-sync", "panic")

	out := scrape(t, m)
	assert.Contains(t, out, `projector_hook_invocations_total{event="repository:upsert",handler="repository-sync",outcome="success"} 2`)
	assert.Contains(t, out, `projector_hook_invocations_total{event="user:upsert",handler="user-sync",outcome="panic"} 1`)
}

func TestMetrics_ObserveSweep(t *testing.T) {
	m := New()
	m.ObserveSweep("repositories", executor.Result{Fulfilled: 9, Errors: 1}, 1500*time.Millisecond)

	out := scrape(t, m)
	assert.Contains(t, out, `projector_sync_jobs_total{kind="repositories",outcome="fulfilled"} 9`)
	assert.Contains(t, out, `projector_sync_jobs_total{kind="repositories",outcome="error"} 1`)
	assert.Contains(t, out, `projector_sync_duration_seconds_count{kind="repositories"} 1`)
	assert.Contains(t, out, `projector_sync_last_completion_timestamp_seconds{kind="repositories"}`)
	assert.Contains(t, out, "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHook("e", "h", "success")
		m.ObserveSweep("users", executor.Result{}, time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
