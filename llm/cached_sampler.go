package llm

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/voteflow/internal/limiter"
	"github.com/BaSui01/voteflow/internal/metrics"
	"github.com/BaSui01/voteflow/llm/cache"
	"go.uber.org/zap"
)

// CachedSampler wraps a backend Sampler with the shared response cache and
// the process-wide concurrency limiter. The cache is consulted before a
// limiter slot is taken, so a hit costs neither a slot nor a backend call.
//
// Only validated results populate the cache: a response the validator rejects
// is returned to the caller untouched but never stored, so a later run cannot
// replay a malfunctioning output as a deterministic answer.
type CachedSampler struct {
	inner    Sampler
	cache    *cache.ResponseCache
	limiter  *limiter.Limiter
	validate func(text string, tokens int) bool
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// CachedSamplerOption configures a CachedSampler.
type CachedSamplerOption func(*CachedSampler)

// WithValidator replaces the default non-empty-text check used to decide
// whether a successful response may populate the cache.
func WithValidator(validate func(text string, tokens int) bool) CachedSamplerOption {
	return func(s *CachedSampler) {
		if validate != nil {
			s.validate = validate
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(collector *metrics.Collector) CachedSamplerOption {
	return func(s *CachedSampler) { s.metrics = collector }
}

// NewCachedSampler decorates inner with caching and concurrency limiting.
// Both cache and lim may be nil, disabling the respective concern.
func NewCachedSampler(inner Sampler, respCache *cache.ResponseCache, lim *limiter.Limiter, logger *zap.Logger, opts ...CachedSamplerOption) *CachedSampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CachedSampler{
		inner:   inner,
		cache:   respCache,
		limiter: lim,
		validate: func(text string, _ int) bool {
			return strings.TrimSpace(text) != ""
		},
		logger: logger.With(zap.String("component", "cached_sampler")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CachedSampler) Name() string { return s.inner.Name() }

// Sample consults the cache for deterministic requests, then forwards to the
// backend under a limiter slot.
func (s *CachedSampler) Sample(ctx context.Context, req *SampleRequest) (*SampleResult, error) {
	if s.cache != nil {
		if entry, ok := s.cache.Get(ctx, req.Model, req.System, req.Prompt, req.Temperature); ok {
			if s.metrics != nil {
				s.metrics.RecordCacheHit("response")
			}
			s.logger.Debug("cache hit",
				zap.String("model", req.Model),
				zap.String("trace_id", req.TraceID))
			return &SampleResult{Text: entry.Value, Tokens: entry.Tokens, Cached: true}, nil
		}
		if req.Temperature == 0 && s.metrics != nil {
			s.metrics.RecordCacheMiss("response")
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, NewError(ErrUpstreamTimeout, "limiter wait aborted").WithCause(err)
		}
		if s.metrics != nil {
			s.metrics.SetLimiterInUse(s.limiter.InUse())
		}
		defer func() {
			s.limiter.Release()
			if s.metrics != nil {
				s.metrics.SetLimiterInUse(s.limiter.InUse())
			}
		}()
	}

	start := time.Now()
	result, err := s.inner.Sample(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("sampled",
		zap.String("model", req.Model),
		zap.Int("tokens", result.Tokens),
		zap.Duration("latency", time.Since(start)))

	if s.cache != nil && s.validate(result.Text, result.Tokens) {
		s.cache.Put(ctx, req.Model, req.System, req.Prompt, req.Temperature, result.Text, result.Tokens)
	}
	return result, nil
}
