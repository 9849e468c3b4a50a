package evaluator

import (
	_ "embed"
	"strings"
)

// SystemPrompt is the system-level instruction for the LLM.
// Loaded from prompts/system.md at compile time.
//
//go:embed prompts/system.md
var SystemPrompt string

// UserPromptTemplate is the user-level prompt template.
// The pane content is appended after this template at runtime.
// Loaded from prompts/user.md at compile time.
//
//go:embed prompts/user.md
var UserPromptTemplate string

// stripMarkdownFences removes a surrounding ```json / ``` fence so the
// response can be parsed even when the model wraps its JSON.
func stripMarkdownFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	// Drop the opening fence line, language tag included.
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	} else {
		return ""
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
