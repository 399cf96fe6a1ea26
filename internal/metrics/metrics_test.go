package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNew_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestObserveFetch(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveFetch("year", "ok", 200*time.Millisecond)
	m.ObserveFetch("year", "ok", 300*time.Millisecond)
	m.ObserveFetch("years", "not_found", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("year", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("years", "not_found")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.UpstreamDuration))
}

func TestRecorders(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCacheLookup("hit")
	m.RecordCacheLookup("hit")
	m.RecordCacheLookup("miss")
	m.RecordRefresh("ok")
	m.RecordRateLimitHit("/api/v1/:username")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshJobs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/api/v1/:username")))
}

func TestHandler(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordCacheLookup("stale")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `contributions_cache_lookups_total{result="stale"} 1`)
}
