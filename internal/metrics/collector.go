// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 投票引擎的指标收集器
type Collector struct {
	// 采样指标
	samplesTotal   *prometheus.CounterVec
	sampleDuration *prometheus.HistogramVec
	tokensUsed     *prometheus.CounterVec

	// 投票指标
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	batchRounds prometheus.Counter

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 限流器指标
	limiterInUse    prometheus.Gauge
	limiterCapacity prometheus.Gauge

	logger *zap.Logger
}

// SampleOutcome 标记一次采样尝试的最终归类
type SampleOutcome string

const (
	OutcomeValid        SampleOutcome = "valid"
	OutcomeRedFlagged   SampleOutcome = "red_flagged"
	OutcomeBackendError SampleOutcome = "backend_error"
	OutcomeCancelled    SampleOutcome = "cancelled"
)

// RunResult 标记一次投票 Run 的收敛方式
type RunResult string

const (
	RunMargin    RunResult = "margin"
	RunPlurality RunResult = "plurality"
	RunEmpty     RunResult = "empty"
)

// NewCollector 创建指标收集器。reg 为空时使用默认注册表。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 采样指标
	c.samplesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Total number of sample attempts by outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	c.sampleDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_duration_seconds",
			Help:      "Backend sample duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.tokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total number of completion tokens consumed",
		},
		[]string{"provider", "model"},
	)

	// 投票指标
	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voting_runs_total",
			Help:      "Total number of voting runs by convergence result",
		},
		[]string{"result"},
	)

	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "voting_run_duration_seconds",
			Help:      "Voting run duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	c.batchRounds = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_rounds_total",
			Help:      "Total number of batch sampling waves issued",
		},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// 限流器指标
	c.limiterInUse = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "limiter_in_use",
			Help:      "Number of concurrency limiter slots currently held",
		},
	)

	c.limiterCapacity = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "limiter_capacity",
			Help:      "Configured concurrency limiter capacity",
		},
	)

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordSample 记录一次采样尝试的结果
func (c *Collector) RecordSample(provider, model string, outcome SampleOutcome, duration time.Duration, tokens int) {
	c.samplesTotal.WithLabelValues(provider, model, string(outcome)).Inc()
	if outcome != OutcomeCancelled {
		c.sampleDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	}
	if tokens > 0 {
		c.tokensUsed.WithLabelValues(provider, model).Add(float64(tokens))
	}
}

// RecordRun 记录一次投票 Run 的收敛结果
func (c *Collector) RecordRun(model string, result RunResult, duration time.Duration) {
	c.runsTotal.WithLabelValues(string(result)).Inc()
	c.runDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordBatchRound 记录一个批次波次
func (c *Collector) RecordBatchRound() {
	c.batchRounds.Inc()
}

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// SetLimiterInUse 更新限流器占用
func (c *Collector) SetLimiterInUse(n int64) {
	c.limiterInUse.Set(float64(n))
}

// SetLimiterCapacity 设置限流器容量
func (c *Collector) SetLimiterCapacity(n int64) {
	c.limiterCapacity.Set(float64(n))
}
