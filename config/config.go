// =============================================================================
// 📦 VoteFlow 配置
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("voteflow.yaml").
//	    WithEnvPrefix("VOTEFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"time"
)

// Config 是 VoteFlow 的完整配置结构
type Config struct {
	// Provider 采样后端配置
	Provider ProviderConfig `yaml:"provider" env:"PROVIDER"`

	// Models 投票与评审使用的模型
	Models ModelsConfig `yaml:"models" env:"MODELS"`

	// Voting 投票引擎参数
	Voting VotingConfig `yaml:"voting" env:"VOTING"`

	// Cache 确定性响应缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Limiter 过程级并发限流配置
	Limiter LimiterConfig `yaml:"limiter" env:"LIMITER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ProviderConfig 采样后端配置
type ProviderConfig struct {
	// Kind 后端类型：anthropic | openai-compat
	Kind string `yaml:"kind" env:"KIND"`
	// API 密钥
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// BaseURL 非空时指向代理或自建网关
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 单次请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 客户端侧速率限制（每秒请求数），0 表示不限制
	RPS float64 `yaml:"rps" env:"RPS"`
	// 速率限制突发额度
	Burst int `yaml:"burst" env:"BURST"`
}

// ModelsConfig 模型选择
type ModelsConfig struct {
	// Voter 微代理（投票）使用的廉价模型
	Voter string `yaml:"voter" env:"VOTER"`
	// Judge 评审合成使用的强模型
	Judge string `yaml:"judge" env:"JUDGE"`
}

// VotingConfig 投票引擎参数
type VotingConfig struct {
	// K first-to-ahead-by-k 的领先裕度
	K int `yaml:"k" env:"K"`
	// MaxTokensThreshold 红旗阈值：超长回答判为无效
	MaxTokensThreshold int `yaml:"max_tokens_threshold" env:"MAX_TOKENS"`
	// MaxRounds 单次 Run 的采样预算上限
	MaxRounds int `yaml:"max_rounds" env:"MAX_ROUNDS"`
	// BatchSize 每个批次波的并发采样数
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE"`
	// Temperature 批次采样温度（大于 0 以保证样本多样性）
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// EarlyTermination 是否允许提前终止并取消在途请求
	EarlyTermination bool `yaml:"early_termination" env:"EARLY_TERMINATION"`
	// NumVoters 多 voter 模式下的默认 voter 数
	NumVoters int `yaml:"num_voters" env:"NUM_VOTERS"`
}

// CacheConfig 响应缓存配置
type CacheConfig struct {
	// TTL 本地条目生存时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// MaxSize 本地最大条目数
	MaxSize int `yaml:"max_size" env:"SIZE"`
	// EnableRedis 是否启用 Redis 二级缓存
	EnableRedis bool `yaml:"enable_redis" env:"ENABLE_REDIS"`
	// Redis 地址
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	// Redis 密码
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	// Redis 数据库编号
	RedisDB int `yaml:"redis_db" env:"REDIS_DB"`
	// Redis 条目生存时间，0 表示沿用本地 TTL
	RedisTTL time.Duration `yaml:"redis_ttl" env:"REDIS_TTL"`
}

// LimiterConfig 并发限流配置
type LimiterConfig struct {
	// MaxConcurrent 全进程同时在途的后端请求上限
	MaxConcurrent int `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别: debug | info | warn | error
	Level string `yaml:"level" env:"LEVEL"`
	// Format 输出格式: json | console
	Format string `yaml:"format" env:"FORMAT"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Kind:    "anthropic",
			Timeout: 60 * time.Second,
		},
		Models: ModelsConfig{
			Voter: "claude-haiku-4-5-20251001",
			Judge: "claude-sonnet-4-5-20250929",
		},
		Voting: VotingConfig{
			K:                  3,
			MaxTokensThreshold: 750,
			MaxRounds:          50,
			BatchSize:          5,
			Temperature:        0.7,
			EarlyTermination:   true,
			NumVoters:          3,
		},
		Cache: CacheConfig{
			TTL:     5 * time.Minute,
			MaxSize: 100,
		},
		Limiter: LimiterConfig{
			MaxConcurrent: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate 检查配置的内部一致性
func (c *Config) Validate() error {
	switch c.Provider.Kind {
	case "anthropic", "openai-compat":
	default:
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}
	if c.Provider.Kind == "openai-compat" && c.Provider.BaseURL == "" {
		return fmt.Errorf("openai-compat provider requires base_url")
	}
	if c.Voting.K < 1 {
		return fmt.Errorf("voting.k must be >= 1, got %d", c.Voting.K)
	}
	if c.Voting.MaxRounds < 1 {
		return fmt.Errorf("voting.max_rounds must be >= 1, got %d", c.Voting.MaxRounds)
	}
	if c.Voting.BatchSize < 1 {
		return fmt.Errorf("voting.batch_size must be >= 1, got %d", c.Voting.BatchSize)
	}
	if c.Voting.Temperature < 0 || c.Voting.Temperature > 2 {
		return fmt.Errorf("voting.temperature must be in [0, 2], got %g", c.Voting.Temperature)
	}
	if c.Limiter.MaxConcurrent < 1 {
		return fmt.Errorf("limiter.max_concurrent must be >= 1, got %d", c.Limiter.MaxConcurrent)
	}
	if c.Cache.MaxSize < 1 {
		return fmt.Errorf("cache.max_size must be >= 1, got %d", c.Cache.MaxSize)
	}
	if c.Cache.EnableRedis && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr required when redis tier is enabled")
	}
	return nil
}
