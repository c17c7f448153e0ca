package council

import (
	"regexp"
	"strings"
)

var (
	codeBlockRe = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_+-]*)\\n(.*?)```")
	jsonObjRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// answerMarkers are common prefixes models put before the actual answer.
var answerMarkers = []string{"Answer:", "Solution:", "Resposta:", "Solução:"}

// ExtractCodeOrAnswer canonicalizes a voter response for vote matching:
// the first fenced code block if present, else the text after a known
// answer marker, else the trimmed response.
func ExtractCodeOrAnswer(response string) string {
	if m := codeBlockRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, marker := range answerMarkers {
		if idx := strings.Index(response, marker); idx >= 0 {
			return strings.TrimSpace(response[idx+len(marker):])
		}
	}

	return strings.TrimSpace(response)
}

// ExtractJSON pulls a JSON document out of a model response: a ```json
// fence first, any fence second, a bare top-level object last. Returns the
// input unchanged when nothing looks like JSON.
func ExtractJSON(response string) string {
	if idx := strings.Index(response, "```json"); idx >= 0 {
		rest := response[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if m := codeBlockRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := jsonObjRe.FindString(response); m != "" {
		return m
	}
	return response
}
