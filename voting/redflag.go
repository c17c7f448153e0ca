package voting

import (
	"fmt"
	"strings"
)

// RedFlagResult 红旗检查结果。
type RedFlagResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// CheckRedFlags applies the surface-level validity policy to one sample.
// A response is discarded when it is longer than maxTokens (the backend
// over-elaborated, a proxy for confused reasoning) or empty after trimming.
// No semantic judgment happens here.
func CheckRedFlags(text string, tokens, maxTokens int) RedFlagResult {
	if tokens > maxTokens {
		return RedFlagResult{
			Reason: fmt.Sprintf("response too long (%d tokens > %d)", tokens, maxTokens),
		}
	}
	if strings.TrimSpace(text) == "" {
		return RedFlagResult{Reason: "empty response"}
	}
	return RedFlagResult{Valid: true}
}
