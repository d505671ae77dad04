package llm

import (
	"strings"
)

// ExtractJSONObject extracts the first complete JSON object from a string
// that may contain extra text (LLMs routinely add explanation before or
// after the JSON despite instructions not to). Returns the input
// unmodified if no object boundary is found.
func ExtractJSONObject(text string) string {
	text = stripCodeFence(text)
	return extractBalanced(text, '{', '}')
}

// ExtractJSONArray extracts the first complete JSON array from a string,
// same tolerance as ExtractJSONObject. Fact extraction (C5) and topic
// extraction (C9) both return arrays rather than a single object.
func ExtractJSONArray(text string) string {
	text = stripCodeFence(text)
	return extractBalanced(text, '[', ']')
}

func stripCodeFence(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// extractBalanced finds the first open/close bracket pair at depth zero,
// respecting string literals and escape sequences.
func extractBalanced(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return text
	}

	depth := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text
}
