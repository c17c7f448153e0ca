package tokenizer

import "sync"

// Counter 是统一的 token 计数接口。红旗过滤依赖输出 token 数；
// 当后端响应缺失 usage 字段时，Provider 用 Counter 在本地补齐计数。
type Counter interface {
	// CountTokens 返回给定文本的 token 数。
	CountTokens(text string) (int, error)

	// Name 返回计数器的名称。
	Name() string
}

// 按模型名缓存计数器，避免每次补齐计数都重建 tiktoken 编码。
var counterCache sync.Map // model -> Counter

// ForModel returns the best available Counter for a model: tiktoken when the
// model maps to a known encoding, otherwise the CJK-aware estimator.
// Counters are cached per model and safe for concurrent use.
func ForModel(model string) Counter {
	if c, ok := counterCache.Load(model); ok {
		return c.(Counter)
	}
	var c Counter
	if t, err := NewTiktokenCounter(model); err == nil {
		c = t
	} else {
		c = NewEstimatorCounter()
	}
	actual, _ := counterCache.LoadOrStore(model, c)
	return actual.(Counter)
}

// Count is a convenience that never fails: it asks the Counter and falls back
// to the estimator on error.
func Count(c Counter, text string) int {
	if c != nil {
		if n, err := c.CountTokens(text); err == nil {
			return n
		}
	}
	n, _ := NewEstimatorCounter().CountTokens(text)
	return n
}
