package analysis

import (
	"errors"
	"strings"
)

// extractJSON finds and returns the first JSON object in s. Model replies often
// arrive wrapped in markdown fences or conversational text despite the prompt's
// instructions, so the payload is located defensively: unwrap a leading code
// fence if present, then scan for the first balanced {...} while ignoring
// braces inside strings.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty input")
	}

	if inner, ok := stripCodeFence(s); ok {
		s = strings.TrimSpace(inner)
	}

	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			if out, ok := balancedObjectAt(s, i); ok {
				return out, nil
			}
		}
	}

	return "", errors.New("no balanced JSON object found")
}

// stripCodeFence removes the first fenced code block if s starts with ``` or
// ~~~, accepting an optional language tag (e.g. ```json).
func stripCodeFence(s string) (inner string, ok bool) {
	trim := strings.TrimLeft(s, "\n\r\t ")
	fence := ""
	switch {
	case strings.HasPrefix(trim, "```"):
		fence = "```"
	case strings.HasPrefix(trim, "~~~"):
		fence = "~~~"
	default:
		return "", false
	}
	rest := trim[len(fence):]
	// Skip the language tag up to the first newline
	idx := strings.IndexByte(rest, '\n')
	if idx == -1 {
		return "", false
	}
	rest = rest[idx+1:]
	if end := strings.Index(rest, fence); end != -1 {
		return rest[:end], true
	}
	return "", false
}

// balancedObjectAt extracts a balanced JSON object starting at startIdx,
// handling strings and escape sequences.
func balancedObjectAt(s string, startIdx int) (string, bool) {
	if startIdx < 0 || startIdx >= len(s) || s[startIdx] != '{' {
		return "", false
	}

	depth := 1
	inString := false
	escape := false
	for i := startIdx + 1; i < len(s); i++ {
		c := s[i]

		if inString {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[startIdx : i+1], true
			}
		}
	}
	return "", false
}
