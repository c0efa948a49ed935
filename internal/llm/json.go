package llm

import (
	"fmt"
	"strings"
)

// CarveObject extracts the first balanced JSON object from a model response,
// tolerating code fences, preamble and trailing commentary.
func CarveObject(content string) (string, error) {
	return carve(content, '{', '}')
}

// CarveValue extracts the first balanced JSON object or array, whichever
// starts earlier in the response.
func CarveValue(content string) (string, error) {
	content = stripFences(content)

	objStart := strings.IndexByte(content, '{')
	arrStart := strings.IndexByte(content, '[')

	switch {
	case objStart == -1 && arrStart == -1:
		return "", fmt.Errorf("no JSON value found in response")
	case objStart == -1:
		return carve(content, '[', ']')
	case arrStart == -1 || objStart < arrStart:
		return carve(content, '{', '}')
	default:
		return carve(content, '[', ']')
	}
}

// carve returns the first balanced open..close region, tracking string
// literals so braces inside quoted text do not confuse the depth count.
func carve(content string, open, closing byte) (string, error) {
	content = stripFences(content)

	start := strings.IndexByte(content, open)
	if start == -1 {
		return "", fmt.Errorf("no %q found in response", string(open))
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		ch := content[i]

		if escaped {
			escaped = false
			continue
		}

		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == closing:
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced JSON in response")
}

// stripFences removes markdown code-fence wrappers the model may add despite
// instructions.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.Contains(content, "```") {
		return content
	}

	content = strings.ReplaceAll(content, "```json", "```")
	if idx := strings.Index(content, "```"); idx != -1 {
		rest := content[idx+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return content
}
