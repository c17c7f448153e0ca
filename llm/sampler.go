package llm

import (
	"context"
)

// SampleRequest describes one generation attempt against a backend.
// Temperature 0 requests are deterministic and therefore cacheable;
// anything above 0 must never hit the response cache.
type SampleRequest struct {
	TraceID     string  `json:"trace_id,omitempty"`
	Model       string  `json:"model"`
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// SampleResult is the raw output of one sampler call. It is owned by the
// call site that produced it and never shared between attempts.
type SampleResult struct {
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
	Cached bool   `json:"cached,omitempty"`
}

// Sampler 定义了统一的文本生成后端接口，投票引擎只依赖这一个契约。
// 传输失败、超时、限流统一以 *Error 返回；引擎将任何错误都视为一次
// 无效采样，绝不向 Run 的调用方透传。
type Sampler interface {
	// Sample 发起一次同步生成请求，返回文本与输出 token 数。
	Sample(ctx context.Context, req *SampleRequest) (*SampleResult, error)

	// Name 返回后端的唯一标识。
	Name() string
}
