package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter 为 OpenAI 系模型封装 tiktoken 计数。
type TiktokenCounter struct {
	model    string
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// 模型编码表：模型名称到 tiktoken 编码的映射。
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// NewTiktokenCounter 为给定模型创建 tiktoken 计数器。
// 未知模型（如 Claude 系列）返回错误，调用方应退回 EstimatorCounter。
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	encoding, ok := modelEncodings[model]
	if !ok {
		// 尝试前缀匹配，取最长命中（gpt-4o-* 不能落到 gpt-4 的编码上）。
		best := ""
		for prefix, enc := range modelEncodings {
			if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
				best = prefix
				encoding = enc
				ok = true
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("no tiktoken encoding for model %q", model)
	}

	return &TiktokenCounter{
		model:    model,
		encoding: encoding,
	}, nil
}

// init lazily 初始化 tiktoken 编码（首次使用时可能下载数据）。
func (t *TiktokenCounter) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenCounter) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenCounter) Name() string {
	return "tiktoken:" + t.encoding
}
