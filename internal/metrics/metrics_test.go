package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	c := NewCollector("test")

	c.RecordMerge("stream")
	c.RecordMerge("stream")
	c.RecordRejection("stream", "consistency")
	c.RecordCacheLookup("url", true)
	c.RecordCacheLookup("url", false)
	c.RecordFeedState("stream", 2)
	c.RecordRate("BTC", "USD", 10000)
	c.RecordBaselineFetch(time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.merges.WithLabelValues("stream")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejections.WithLabelValues("stream", "consistency")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("url", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.feedState.WithLabelValues("stream")))
	assert.Equal(t, 10000.0, testutil.ToFloat64(c.rates.WithLabelValues("BTC", "USD")))
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	c.RecordMerge("stream")
	c.RecordFeedMessage("stream")
	c.RecordHistoryRows(3)
	assert.NotNil(t, c.Handler())
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.RecordFeedReconnect("stream")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_feed_reconnects_total{feed="stream"} 1`))
}
