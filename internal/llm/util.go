// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"encoding/json"
	"strings"
)

// CleanJSONBlock removes markdown code block wrappers and surrounding prose from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks or add a preamble even when instructed not to.
func CleanJSONBlock(text string) string {
	text = stripCodeFence(strings.TrimSpace(text))

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if span := balancedSpan(text[start:]); span != "" {
		return span
	}
	return text
}

// ExtractJSONObject returns the first balanced JSON object embedded in text.
// Braces inside string literals are ignored, so surrounding prose and code fences
// do not confuse the scan. A candidate that balances but is not valid JSON is skipped.
func ExtractJSONObject(text string) (string, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		span := extractJSONObject(text[i:])
		if span != "" && json.Valid([]byte(span)) {
			return span, true
		}
	}
	return "", false
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Skip a language identifier on the first line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.ContainsAny(firstLine, "{[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// extractJSONObject returns the balanced object starting at text[0], or "".
func extractJSONObject(text string) string {
	if !strings.HasPrefix(text, "{") {
		return ""
	}
	return balancedSpan(text)
}

// balancedSpan scans from the opening bracket at text[0] until depth returns to zero.
func balancedSpan(text string) string {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
