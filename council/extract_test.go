package council

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCodeOrAnswer(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "fenced code block with language",
			response: "Here is the solution:\n```go\nfunc main() {}\n```\nHope it helps!",
			want:     "func main() {}",
		},
		{
			name:     "fenced code block without language",
			response: "```\nprint(42)\n```",
			want:     "print(42)",
		},
		{
			name:     "first of multiple blocks wins",
			response: "```\nfirst\n```\nand\n```\nsecond\n```",
			want:     "first",
		},
		{
			name:     "answer marker",
			response: "Let me think.\nAnswer: 42",
			want:     "42",
		},
		{
			name:     "solution marker",
			response: "Solution: use a hash map",
			want:     "use a hash map",
		},
		{
			name:     "portuguese marker",
			response: "Pensando...\nResposta: 42",
			want:     "42",
		},
		{
			name:     "plain text falls back to trim",
			response: "  just the answer \n",
			want:     "just the answer",
		},
		{
			name:     "code block takes precedence over marker",
			response: "Answer: see below\n```\nreal answer\n```",
			want:     "real answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCodeOrAnswer(tt.response))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "json fence",
			response: "Here you go:\n```json\n{\"a\": 1}\n```",
			want:     `{"a": 1}`,
		},
		{
			name:     "generic fence",
			response: "```\n{\"a\": 1}\n```",
			want:     `{"a": 1}`,
		},
		{
			name:     "bare object",
			response: "The plan is {\"steps\": []} as requested.",
			want:     `{"steps": []}`,
		},
		{
			name:     "nothing json-like returns input",
			response: "no structure here",
			want:     "no structure here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.response))
		})
	}
}
