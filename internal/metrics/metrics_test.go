package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.ObserveTrackerRequest("edinburgh", "ok", 20*time.Millisecond)
	c.ObserveTrackerRequest("edinburgh", "ok", 30*time.Millisecond)
	c.ObserveTrackerRequest("edinburgh", "server", time.Second)
	c.ObserveCheck(4, 1, time.Second)
	c.NotificationPublished()
	c.NotificationFailed()
	c.SetConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.TrackerRequests.WithLabelValues("edinburgh", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TrackerRequests.WithLabelValues("edinburgh", "server")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.AlertsEvaluated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AlertsSatisfied))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NotificationsPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NotificationErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))

	c.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.NATSConnected))
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.ObserveCheck(1, 0, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "busalert_alerts_evaluated_total 1")
	assert.Contains(t, string(body), "busalert_check_duration_seconds_count 1")
}
