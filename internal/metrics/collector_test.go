package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorRecordSample(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("voteflow", reg, nil)

	c.RecordSample("claude", "m", OutcomeValid, 100*time.Millisecond, 12)
	c.RecordSample("claude", "m", OutcomeValid, 200*time.Millisecond, 8)
	c.RecordSample("claude", "m", OutcomeRedFlagged, 50*time.Millisecond, 900)
	c.RecordSample("claude", "m", OutcomeCancelled, 0, 0)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(c.samplesTotal.WithLabelValues("claude", "m", "valid")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(c.samplesTotal.WithLabelValues("claude", "m", "red_flagged")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(c.samplesTotal.WithLabelValues("claude", "m", "cancelled")))
	assert.Equal(t, float64(12+8+900),
		testutil.ToFloat64(c.tokensUsed.WithLabelValues("claude", "m")))
}

func TestCollectorRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("voteflow", reg, nil)

	c.RecordRun("m", RunMargin, time.Second)
	c.RecordRun("m", RunMargin, time.Second)
	c.RecordRun("m", RunPlurality, time.Second)
	c.RecordRun("m", RunEmpty, time.Second)
	c.RecordBatchRound()
	c.RecordBatchRound()

	assert.Equal(t, float64(2), testutil.ToFloat64(c.runsTotal.WithLabelValues("margin")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.runsTotal.WithLabelValues("plurality")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.runsTotal.WithLabelValues("empty")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.batchRounds))
}

func TestCollectorCacheAndLimiter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("voteflow", reg, nil)

	c.RecordCacheHit("response")
	c.RecordCacheMiss("response")
	c.RecordCacheMiss("response")
	c.SetLimiterInUse(3)
	c.SetLimiterCapacity(10)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheHits.WithLabelValues("response")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.cacheMisses.WithLabelValues("response")))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.limiterInUse))
	assert.Equal(t, float64(10), testutil.ToFloat64(c.limiterCapacity))
}

func TestCollectorIsolatedRegistries(t *testing.T) {
	// Two collectors must be able to coexist without duplicate registration
	// panics, as long as they use separate registries.
	a := NewCollector("voteflow", prometheus.NewRegistry(), nil)
	b := NewCollector("voteflow", prometheus.NewRegistry(), nil)

	a.RecordBatchRound()
	b.RecordBatchRound()
	b.RecordBatchRound()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.batchRounds))
	assert.Equal(t, float64(2), testutil.ToFloat64(b.batchRounds))
}
