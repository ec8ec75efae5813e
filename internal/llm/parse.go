package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON strips a markdown code-fence wrapper (if present) and
// locates the first balanced JSON object in text, then hands it to a
// lenient decoder. The fence-stripping half of this mirrors a common
// judge-response parsing idiom; the balanced-brace scan is added because
// LLM responses in this domain often carry a sentence of prose before or
// after the JSON object.
func ExtractJSON(text string, out any) error {
	obj, err := firstBalancedObject(stripFences(text))
	if err != nil {
		return fmt.Errorf("extracting JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// firstBalancedObject scans for the first top-level {...} span, respecting
// nested braces and string literals so embedded braces in string values
// don't terminate the scan early.
func firstBalancedObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("no balanced JSON object found")
}
