// Package evaluator provides LLM-based assessment of pane content. It backs
// the one-shot check command; the poll loop never calls an LLM.
package evaluator

import (
	"context"
)

// Verdict is the JSON structure returned by the LLM.
type Verdict struct {
	// Blocked is true when the pane is waiting for human input.
	Blocked bool `json:"blocked"`
	// Reason explains the judgment in one sentence.
	Reason string `json:"reason"`
	// WaitingFor names what the agent wants (approval, answer, credentials).
	// Empty when not blocked.
	WaitingFor string `json:"waiting_for"`
	// Suggestion is a short reply the user could send, if one is obvious.
	Suggestion string `json:"suggestion,omitempty"`

	// Usage is populated by the evaluator, not parsed from the LLM response.
	Usage TokenUsage `json:"-"`
}

// TokenUsage tracks LLM token consumption for a single assessment.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Evaluator sends pane content to an LLM and returns a verdict.
type Evaluator interface {
	// Evaluate sends the pane content to an LLM and returns the verdict.
	Evaluate(ctx context.Context, content string) (*Verdict, error)

	// Provider returns the provider name (e.g., "anthropic", "openai").
	Provider() string

	// Model returns the model name used for evaluation.
	Model() string
}
