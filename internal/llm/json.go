package llm

import "strings"

// ExtractJSONBlock returns the JSON object embedded in model output.
// Models wrap JSON in prose or markdown fences even when told not to,
// so everything outside the outermost braces is discarded.
func ExtractJSONBlock(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
