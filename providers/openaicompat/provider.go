package openaicompat

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

// Sampler 实现 OpenAI 兼容 chat/completions 代理的采样后端。
// 用于把投票流量指向任意 OpenAI 协议的网关或本地推理服务。
type Sampler struct {
	cfg    providers.OpenAICompatConfig
	client *http.Client
	rps    *rate.Limiter
	logger *zap.Logger
}

// NewSampler 创建 OpenAI 兼容采样后端。BaseURL 必填。
func NewSampler(cfg providers.OpenAICompatConfig, logger *zap.Logger) *Sampler {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
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

	return &Sampler{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		rps:    rps,
		logger: logger.With(zap.String("component", "openaicompat_sampler")),
	}
}

func (p *Sampler) Name() string { return "openai-compat" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatErrorResp struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Sample 发起一次 chat/completions 调用。system 提示作为首条 system 消息。
func (p *Sampler) Sample(ctx context.Context, req *llm.SampleRequest) (*llm.SampleResult, error) {
	if p.rps != nil {
		if err := p.rps.Wait(ctx); err != nil {
			return nil, llm.NewError(llm.ErrRateLimited, "client-side rate limit wait aborted").
				WithCause(err).WithProvider(p.Name())
		}
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

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
		msg := readErrMsg(resp.Body)
		return nil, &llm.Error{
			Code:       llm.CodeFromStatus(resp.StatusCode),
			Message:    msg,
			HTTPStatus: resp.StatusCode,
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Provider:   p.Name(),
		}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, err.Error()).
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).WithProvider(p.Name())
	}

	var text string
	if len(chatResp.Choices) > 0 {
		text = chatResp.Choices[0].Message.Content
	}

	tokens := 0
	if chatResp.Usage != nil {
		tokens = chatResp.Usage.CompletionTokens
	}
	if tokens == 0 && text != "" {
		// usage 缺失时本地补齐：gpt 系模型走 tiktoken，其余走估算器。
		tokens = tokenizer.Count(tokenizer.ForModel(req.Model), text)
	}

	p.logger.Debug("chat completion sampled",
		zap.String("model", req.Model),
		zap.Int("tokens", tokens))

	return &llm.SampleResult{Text: text, Tokens: tokens}, nil
}

func readErrMsg(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "unreadable error body"
	}
	var errResp chatErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
	}
	return string(data)
}
