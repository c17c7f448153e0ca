package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/voteflow/llm"
	"github.com/BaSui01/voteflow/llm/tokenizer"
	"github.com/BaSui01/voteflow/providers"
)

// ClaudeSampler 实现 Anthropic 原生 messages API 的采样后端。
// Claude API 与 OpenAI 有显著差异：
// 1. 认证使用 x-api-key 请求头而非 Bearer Token
// 2. system 消息单独传递
// 3. content 是数组形式
type ClaudeSampler struct {
	cfg    providers.ClaudeConfig
	client *http.Client
	rps    *rate.Limiter
	logger *zap.Logger
}

// NewClaudeSampler 创建 Claude 采样后端。
func NewClaudeSampler(cfg providers.ClaudeConfig, logger *zap.Logger) *ClaudeSampler {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second // Claude 响应可能较慢
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var rps *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		rps = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &ClaudeSampler{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		rps:    rps,
		logger: logger.With(zap.String("component", "claude_sampler")),
	}
}

func (p *ClaudeSampler) Name() string { return "claude" }

// Claude 的消息结构
type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	System      string          `json:"system,omitempty"` // system 消息单独传递
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Role       string          `json:"role"`
	Content    []claudeContent `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
	Usage      *claudeUsage    `json:"usage,omitempty"`
}

type claudeErrorResp struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *ClaudeSampler) buildHeaders(req *http.Request) {
	// Claude 使用 x-api-key 认证
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// Sample 发起一次 messages API 调用。
func (p *ClaudeSampler) Sample(ctx context.Context, req *llm.SampleRequest) (*llm.SampleResult, error) {
	if p.rps != nil {
		if err := p.rps.Wait(ctx); err != nil {
			return nil, llm.NewError(llm.ErrRateLimited, "client-side rate limit wait aborted").
				WithCause(err).WithProvider(p.Name())
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096 // Claude 要求必须提供 max_tokens
	}

	body := claudeRequest{
		Model: req.Model,
		Messages: []claudeMessage{{
			Role:    "user",
			Content: []claudeContent{{Type: "text", Text: req.Prompt}},
		}},
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1/messages", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, llm.NewError(llm.ErrUpstreamTimeout, err.Error()).
				WithCause(err).WithProvider(p.Name())
		}
		return nil, llm.NewError(llm.ErrUpstreamError, err.Error()).
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).WithProvider(p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readClaudeErrMsg(resp.Body)
		return nil, mapClaudeError(resp.StatusCode, msg, p.Name())
	}

	var claudeResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, err.Error()).
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).WithProvider(p.Name())
	}

	var text string
	if len(claudeResp.Content) > 0 {
		text = claudeResp.Content[0].Text
	}

	tokens := 0
	if claudeResp.Usage != nil {
		tokens = claudeResp.Usage.OutputTokens
	}
	if tokens == 0 && text != "" {
		// usage 缺失时本地补齐：按模型选计数器（Claude 系列落到估算器）。
		tokens = tokenizer.Count(tokenizer.ForModel(req.Model), text)
	}

	p.logger.Debug("claude sample completed",
		zap.String("model", req.Model),
		zap.String("stop_reason", claudeResp.StopReason),
		zap.Int("tokens", tokens))

	return &llm.SampleResult{Text: text, Tokens: tokens}, nil
}

func readClaudeErrMsg(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "unreadable error body"
	}
	var errResp claudeErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
	}
	return string(data)
}

func mapClaudeError(status int, msg string, provider string) *llm.Error {
	// Claude 错误码映射
	switch status {
	case http.StatusUnauthorized:
		return &llm.Error{Code: llm.ErrUnauthorized, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusForbidden:
		return &llm.Error{Code: llm.ErrForbidden, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusTooManyRequests:
		return &llm.Error{Code: llm.ErrRateLimited, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &llm.Error{Code: llm.ErrUpstreamTimeout, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return &llm.Error{Code: llm.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case 529: // Claude 特有的过载状态码
		return &llm.Error{Code: llm.ErrProviderUnavailable, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	default:
		if status >= 500 {
			return &llm.Error{Code: llm.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
		}
		return &llm.Error{Code: llm.ErrInvalidRequest, Message: msg, HTTPStatus: status, Provider: provider}
	}
}
