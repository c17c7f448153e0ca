// MockSampler 的 LLM 采样器测试模拟实现。
//
// 支持固定响应、脚本化响应序列与错误注入场景。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/voteflow/llm"
)

// --- MockSampler 结构 ---

// MockSampler 是 llm.Sampler 的模拟实现
type MockSampler struct {
	mu sync.Mutex

	// 响应配置
	responses []string // 按调用顺序返回，耗尽后重复最后一条
	tokens    int      // 每次响应的 token 数，0 表示按文本长度估算
	err       error

	// 行为控制
	delay      time.Duration // 模拟采样耗时（可被 ctx 取消打断）
	failAfter  int           // 第 N 次调用之后开始失败（0 = 不启用）
	sampleFunc func(ctx context.Context, req *llm.SampleRequest, call int) (*llm.SampleResult, error)

	// 调用记录
	calls       []*llm.SampleRequest
	inFlight    int
	maxInFlight int
}

// NewMockSampler 创建一个默认返回 "mock" 的模拟采样器
func NewMockSampler() *MockSampler {
	return &MockSampler{responses: []string{"mock"}}
}

// WithResponses 设置按调用顺序返回的响应序列
func (m *MockSampler) WithResponses(texts ...string) *MockSampler {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = texts
	return m
}

// WithTokens 固定每次响应的 token 数
func (m *MockSampler) WithTokens(n int) *MockSampler {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = n
	return m
}

// WithError 设置每次调用都返回的错误
func (m *MockSampler) WithError(err error) *MockSampler {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailAfter 设置第 n 次调用之后开始返回 err
func (m *MockSampler) WithFailAfter(n int, err error) *MockSampler {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.err = err
	return m
}

// WithDelay 设置每次采样的模拟延迟
func (m *MockSampler) WithDelay(d time.Duration) *MockSampler {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithSampleFunc 完全接管采样逻辑，call 为从 1 开始的调用序号
func (m *MockSampler) WithSampleFunc(fn func(ctx context.Context, req *llm.SampleRequest, call int) (*llm.SampleResult, error)) *MockSampler {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleFunc = fn
	return m
}

// Sample 实现 llm.Sampler
func (m *MockSampler) Sample(ctx context.Context, req *llm.SampleRequest) (*llm.SampleResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	call := len(m.calls)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.delay
	fn := m.sampleFunc
	failAfter := m.failAfter
	err := m.err
	text := ""
	if len(m.responses) > 0 {
		idx := call - 1
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		text = m.responses[idx]
	}
	tokens := m.tokens
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if fn != nil {
		return fn(ctx, req, call)
	}
	if err != nil && (failAfter == 0 || call > failAfter) {
		return nil, err
	}
	if tokens == 0 {
		tokens = len(text) / 4
		if tokens == 0 && text != "" {
			tokens = 1
		}
	}
	return &llm.SampleResult{Text: text, Tokens: tokens}, nil
}

// Name 实现 llm.Sampler
func (m *MockSampler) Name() string { return "mock" }

// CallCount 返回累计调用次数
func (m *MockSampler) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls 返回调用记录的副本
func (m *MockSampler) Calls() []*llm.SampleRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.SampleRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// MaxInFlight 返回观察到的最大并发采样数
func (m *MockSampler) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}
