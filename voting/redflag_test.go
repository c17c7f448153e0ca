package voting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckRedFlags(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		tokens    int
		maxTokens int
		wantValid bool
		reason    string
	}{
		{
			name:      "valid response",
			text:      "42",
			tokens:    5,
			maxTokens: 750,
			wantValid: true,
		},
		{
			name:      "exactly at threshold is valid",
			text:      "long but acceptable",
			tokens:    750,
			maxTokens: 750,
			wantValid: true,
		},
		{
			name:      "one over threshold",
			text:      "too long",
			tokens:    751,
			maxTokens: 750,
			wantValid: false,
			reason:    "too long",
		},
		{
			name:      "empty response",
			text:      "",
			tokens:    0,
			maxTokens: 750,
			wantValid: false,
			reason:    "empty",
		},
		{
			name:      "whitespace only",
			text:      " \n\t ",
			tokens:    3,
			maxTokens: 750,
			wantValid: false,
			reason:    "empty",
		},
		{
			name:      "length check runs before emptiness",
			text:      "",
			tokens:    9999,
			maxTokens: 750,
			wantValid: false,
			reason:    "too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckRedFlags(tt.text, tt.tokens, tt.maxTokens)
			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantValid {
				assert.Empty(t, result.Reason)
			} else {
				assert.True(t, strings.Contains(result.Reason, tt.reason),
					"reason %q should contain %q", result.Reason, tt.reason)
			}
		})
	}
}
