package providers

import "time"

// ClaudeConfig Anthropic 原生 API Provider 配置
type ClaudeConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// RPS 客户端侧速率限制（每秒请求数），0 表示不限制
	RPS   float64 `json:"rps,omitempty" yaml:"rps,omitempty"`
	Burst int     `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// OpenAICompatConfig OpenAI 兼容代理 Provider 配置
type OpenAICompatConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RPS     float64       `json:"rps,omitempty" yaml:"rps,omitempty"`
	Burst   int           `json:"burst,omitempty" yaml:"burst,omitempty"`
}
