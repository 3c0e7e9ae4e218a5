// internal/llm/json.go
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject pulls the JSON object out of a model response. Models
// wrap JSON in markdown fences, prepend prose, or append commentary; this
// strips fences, tries a direct parse, then falls back to scanning for the
// first balanced object. A parse failure is a recoverable "no result", never
// a reason to trust partial output.
func ExtractJSONObject(response string) (json.RawMessage, error) {
	cleaned := StripCodeFences(response)
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}

	if json.Valid([]byte(cleaned)) && strings.HasPrefix(cleaned, "{") {
		return json.RawMessage(cleaned), nil
	}

	candidate := firstBalancedObject(cleaned)
	if candidate == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("response contained an unparseable JSON object")
	}
	return json.RawMessage(candidate), nil
}

// StripCodeFences removes a surrounding markdown code fence, with or
// without a language tag, and trims the result
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag line ("json", "javascript", ...).
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		firstLine := strings.TrimSpace(s[:i])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}[]") {
			s = s[i+1:]
		}
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// firstBalancedObject scans for the first '{' and returns the substring up
// to its balancing '}', respecting strings and escapes
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			if inString {
				escaped = true
			}
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
