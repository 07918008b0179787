package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveStage("idea", "success", 2*time.Second)
	m.ObserveStage("idea", "success", time.Second)
	m.ObserveStage("draft", "generation_error", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageExecutionsTotal.WithLabelValues("idea", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageExecutionsTotal.WithLabelValues("draft", "generation_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestObserveSave(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveSave(nil)
	m.ObserveSave(errors.New("disk full"))
	m.ObserveSave(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsSavedTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsSavedTotal.WithLabelValues("error")))
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ActiveSessions.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "content_workflow_active_sessions 3")
}
