// =============================================================================
// Package voteflow — One-Line Voting System Construction
// =============================================================================
// Provides a convenience entry point for assembling the full voting stack
// with minimal boilerplate: provider, cache, limiter, engine and council
// wired from a single config.
//
// Usage:
//
//	import "github.com/BaSui01/voteflow"
//
//	vf, err := voteflow.New(voteflow.WithAnthropic(""))
//	vf, err := voteflow.New(voteflow.WithConfig(cfg))
//	vf, err := voteflow.New(voteflow.WithSampler(mySampler))
//
//	report, err := vf.Council.Consult(ctx, "What is 6*7?", 3, 3)
//
// =============================================================================
package voteflow

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/voteflow/config"
	"github.com/BaSui01/voteflow/council"
	"github.com/BaSui01/voteflow/internal/limiter"
	"github.com/BaSui01/voteflow/internal/metrics"
	"github.com/BaSui01/voteflow/llm"
	"github.com/BaSui01/voteflow/llm/cache"
	"github.com/BaSui01/voteflow/providers"
	claude "github.com/BaSui01/voteflow/providers/anthropic"
	"github.com/BaSui01/voteflow/providers/openaicompat"
	"github.com/BaSui01/voteflow/voting"
)

// System is the fully wired voting stack. All fields are ready to use after
// [New] returns; none of them are nil.
type System struct {
	Config      *config.Config
	Logger      *zap.Logger
	Sampler     llm.Sampler
	Cache       *cache.ResponseCache
	Limiter     *limiter.Limiter
	Engine      *voting.Engine
	Coordinator *voting.Coordinator
	Council     *council.Council
}

// Option configures the system created by [New].
type Option func(*options)

type options struct {
	cfg      *config.Config
	logger   *zap.Logger
	sampler  llm.Sampler
	registry prometheus.Registerer
}

// WithConfig supplies a complete configuration. Defaults to
// [config.DefaultConfig] with the API key from the environment.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithAnthropic selects the Anthropic backend. API key is read from
// ANTHROPIC_API_KEY when the argument is empty.
func WithAnthropic(apiKey string) Option {
	return func(o *options) {
		if o.cfg == nil {
			o.cfg = config.DefaultConfig()
		}
		o.cfg.Provider.Kind = "anthropic"
		if apiKey != "" {
			o.cfg.Provider.APIKey = apiKey
		}
	}
}

// WithOpenAICompat selects an OpenAI-compatible backend at the given base
// URL. API key is read from OPENAI_API_KEY when the argument is empty.
func WithOpenAICompat(apiKey, baseURL string) Option {
	return func(o *options) {
		if o.cfg == nil {
			o.cfg = config.DefaultConfig()
		}
		o.cfg.Provider.Kind = "openai-compat"
		o.cfg.Provider.BaseURL = baseURL
		if apiKey != "" {
			o.cfg.Provider.APIKey = apiKey
		}
	}
}

// WithSampler sets a pre-built sampler, bypassing provider construction.
// The sampler is still wrapped with the cache and limiter decorator.
func WithSampler(s llm.Sampler) Option {
	return func(o *options) { o.sampler = s }
}

// WithLogger sets a custom zap logger. Defaults to a logger built from the
// config's log section.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables Prometheus metrics on the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// New assembles the full voting stack.
func New(opts ...Option) (*System, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.Provider.APIKey == "" {
		switch cfg.Provider.Kind {
		case "anthropic":
			cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai-compat":
			cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = BuildLogger(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
	}

	var collector *metrics.Collector
	if o.registry != nil {
		collector = metrics.NewCollector("voteflow", o.registry, logger)
	}

	cacheOpts := []cache.Option{}
	if cfg.Cache.EnableRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		redisTTL := cfg.Cache.RedisTTL
		if redisTTL == 0 {
			redisTTL = cfg.Cache.TTL
		}
		cacheOpts = append(cacheOpts, cache.WithRedis(client, redisTTL))
	}
	respCache := cache.New(cfg.Cache.MaxSize, cfg.Cache.TTL, logger, cacheOpts...)

	lim := limiter.New(cfg.Limiter.MaxConcurrent)
	if collector != nil {
		collector.SetLimiterCapacity(lim.Capacity())
	}

	inner := o.sampler
	if inner == nil {
		if cfg.Provider.APIKey == "" {
			return nil, fmt.Errorf("API key is required for %s: set the environment variable or the config", cfg.Provider.Kind)
		}
		switch cfg.Provider.Kind {
		case "anthropic":
			inner = claude.NewClaudeSampler(providers.ClaudeConfig{
				APIKey:  cfg.Provider.APIKey,
				BaseURL: cfg.Provider.BaseURL,
				Timeout: cfg.Provider.Timeout,
				RPS:     cfg.Provider.RPS,
				Burst:   cfg.Provider.Burst,
			}, logger)
		case "openai-compat":
			inner = openaicompat.NewSampler(providers.OpenAICompatConfig{
				APIKey:  cfg.Provider.APIKey,
				BaseURL: cfg.Provider.BaseURL,
				Timeout: cfg.Provider.Timeout,
				RPS:     cfg.Provider.RPS,
				Burst:   cfg.Provider.Burst,
			}, logger)
		}
	}

	// 缓存写入前做红旗校验，保证命中的条目永远是有效样本。
	threshold := cfg.Voting.MaxTokensThreshold
	samplerOpts := []llm.CachedSamplerOption{
		llm.WithValidator(func(text string, tokens int) bool {
			return voting.CheckRedFlags(text, tokens, threshold).Valid
		}),
	}
	if collector != nil {
		samplerOpts = append(samplerOpts, llm.WithMetrics(collector))
	}
	sampler := llm.NewCachedSampler(inner, respCache, lim, logger, samplerOpts...)

	engine := voting.NewEngine(&voting.Runtime{
		Sampler: sampler,
		Cache:   respCache,
		Metrics: collector,
		Logger:  logger,
	}, voting.Options{
		DefaultK:           cfg.Voting.K,
		MaxTokensThreshold: cfg.Voting.MaxTokensThreshold,
		MaxRounds:          cfg.Voting.MaxRounds,
		BatchSize:          cfg.Voting.BatchSize,
		EarlyTermination:   cfg.Voting.EarlyTermination,
	})

	c := council.New(engine, council.Models{
		Voter: cfg.Models.Voter,
		Judge: cfg.Models.Judge,
	}, float32(cfg.Voting.Temperature), logger)

	return &System{
		Config:      cfg,
		Logger:      logger,
		Sampler:     sampler,
		Cache:       respCache,
		Limiter:     lim,
		Engine:      engine,
		Coordinator: voting.NewCoordinator(engine),
		Council:     c,
	}, nil
}

// BuildLogger constructs a zap logger from the log config section.
func BuildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
