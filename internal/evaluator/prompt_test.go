package evaluator

import (
	"encoding/json"
	"testing"
)

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain JSON unchanged",
			input: `{"blocked": true, "reason": "prompt"}`,
			want:  `{"blocked": true, "reason": "prompt"}`,
		},
		{
			name:  "fenced json block",
			input: "```json\n{\"blocked\": true}\n```",
			want:  `{"blocked": true}`,
		},
		{
			name:  "fenced without language",
			input: "```\n{\"blocked\": true}\n```",
			want:  `{"blocked": true}`,
		},
		{
			name:  "fenced with whitespace",
			input: "  ```json\n{\"key\": \"value\"}\n```  ",
			want:  `{"key": "value"}`,
		},
		{
			name:  "multiline JSON in fences",
			input: "```json\n{\n  \"blocked\": true,\n  \"reason\": \"x\"\n}\n```",
			want:  "{\n  \"blocked\": true,\n  \"reason\": \"x\"\n}",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only fences no content",
			input: "```json\n```",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripMarkdownFences(tt.input)
			if got != tt.want {
				t.Errorf("stripMarkdownFences(%q) =\n  %q\nwant:\n  %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestVerdictParsing(t *testing.T) {
	raw := "```json\n{\"blocked\": true, \"reason\": \"confirmation prompt\", \"waiting_for\": \"y/n answer\", \"suggestion\": \"y\"}\n```"

	var v Verdict
	if err := json.Unmarshal([]byte(stripMarkdownFences(raw)), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !v.Blocked {
		t.Error("Blocked = false, want true")
	}
	if v.WaitingFor != "y/n answer" {
		t.Errorf("WaitingFor = %q", v.WaitingFor)
	}
	if v.Suggestion != "y" {
		t.Errorf("Suggestion = %q", v.Suggestion)
	}
}

func TestPromptsLoaded(t *testing.T) {
	if SystemPrompt == "" {
		t.Error("SystemPrompt is empty — embed directive may have failed")
	}
	if UserPromptTemplate == "" {
		t.Error("UserPromptTemplate is empty — embed directive may have failed")
	}
}
