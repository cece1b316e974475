package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ReplySent("canned", "happy")
	c.GenerationFailed("timeout")
	c.GenerationRetried()
	c.ObserveGeneration(time.Second)
	c.HistoryWritten(true)
	assert.Nil(t, c.Registry())
}

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.ReplySent("canned", "greeting")
	c.ReplySent("canned", "greeting")
	c.ReplySent("generated", "neutral")
	c.GenerationFailed("unavailable")
	c.GenerationRetried()
	c.HistoryWritten(true)
	c.HistoryWritten(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.RepliesTotal.WithLabelValues("canned", "greeting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RepliesTotal.WithLabelValues("generated", "neutral")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GenerationFailures.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GenerationRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HistoryWrites.WithLabelValues("error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.ReplySent("canned", "sad")

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `heartchat_replies_total{emotion="sad",source="canned"} 1`))
}
