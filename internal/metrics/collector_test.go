package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordStep("click", "success", time.Second)
	c.RecordWinningRank("click", 1)
	c.RecordAttempt("click", "success")
	c.RecordFallback("click")
	c.RecordValidator("presence", true)
	c.RecordHistoryHit("memory")
	c.RecordHistoryMiss("memory")
	c.RecordHistoryError("memory", "upsert")
	c.RecordDriverAction("click", "primary", time.Millisecond)
}

func TestCollectorRecords(t *testing.T) {
	// Unique namespace; the collector registers on the default registry.
	c := NewCollector("webpilot_collector_test", zaptest.NewLogger(t))

	c.RecordStep("click", "success", 250*time.Millisecond)
	c.RecordStep("click", "success", 100*time.Millisecond)
	c.RecordStep("type", "failed", time.Second)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.stepsTotal.WithLabelValues("click", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stepsTotal.WithLabelValues("type", "failed")))

	c.RecordAttempt("click", "driver_error")
	c.RecordAttempt("click", "driver_error")
	c.RecordAttempt("click", "success")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.attemptsTotal.WithLabelValues("click", "driver_error")))

	c.RecordFallback("click")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fallbacksTotal.WithLabelValues("click")))

	c.RecordValidator("presence", true)
	c.RecordValidator("presence", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.validatorsTotal.WithLabelValues("presence", "passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.validatorsTotal.WithLabelValues("presence", "failed")))

	c.RecordHistoryHit("redis")
	c.RecordHistoryMiss("redis")
	c.RecordHistoryError("redis", "get")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.historyHits.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.historyMisses.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.historyErrors.WithLabelValues("redis", "get")))
}
