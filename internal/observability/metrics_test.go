package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.EventsRecorded.WithLabelValues("pee").Inc()
	m.EventsRecorded.WithLabelValues("pee").Inc()
	m.EventsRejected.WithLabelValues("invalid").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues("pee")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsRejected.WithLabelValues("invalid")))

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_events_recorded_total")
	assert.Contains(t, names, "test_events_rejected_total")
}

func TestRecordDBQuery_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("unit", "get"))

	RecordDBQuery("unit", "get", 0.01, nil)
	RecordDBQuery("unit", "get", 0.02, errors.New("boom"))

	after := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("unit", "get"))
	assert.Equal(t, before+1, after)
}

func TestRecordStatsComputed(t *testing.T) {
	okBefore := testutil.ToFloat64(DefaultMetrics.StatsComputed)
	errBefore := testutil.ToFloat64(DefaultMetrics.StatsErrors)

	RecordStatsComputed(0.5, nil)
	RecordStatsComputed(0, errors.New("store down"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(DefaultMetrics.StatsComputed))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(DefaultMetrics.StatsErrors))
}

func TestRecordEventRecorded_SetsLastTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	RecordEventRecorded("poo", at)
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(DefaultMetrics.LastEventRecorded))
}

func TestSetWSClients(t *testing.T) {
	SetWSClients(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(DefaultMetrics.WSClients))
	SetWSClients(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.WSClients))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordCacheResult("hit")
	RecordQueueMessage("recorded")
	RecordHTTPRequest("GET", "/api/stats", 200, 0.001)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "pawlog_cache_requests_total"))
	assert.True(t, strings.Contains(body, "pawlog_queue_messages_total"))
	assert.True(t, strings.Contains(body, `pawlog_http_requests_total{code="200",method="GET",route="/api/stats"}`))
}
