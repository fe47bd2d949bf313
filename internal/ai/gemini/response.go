package gemini

import (
	"strings"
)

// extractJSON strips markdown code fences that models like to wrap JSON
// payloads in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// extractFencedBlock returns the contents of the first ```lang fenced block
// and the response with that block removed. When no such block exists both
// return values fall back to the raw input and an empty remainder marker.
func extractFencedBlock(raw, lang string) (block, remainder string, found bool) {
	fence := "```" + lang
	start := strings.Index(raw, fence)
	if start == -1 {
		return "", raw, false
	}

	rest := raw[start+len(fence):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return strings.TrimSpace(rest), strings.TrimSpace(raw[:start]), true
	}

	block = strings.TrimSpace(rest[:end])
	remainder = strings.TrimSpace(raw[:start] + rest[end+3:])
	return block, remainder, true
}
