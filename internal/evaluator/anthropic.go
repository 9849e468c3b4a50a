package evaluator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AnthropicEvaluator assesses pane content using the Anthropic Messages API.
type AnthropicEvaluator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicConfig holds configuration for the Anthropic evaluator.
type AnthropicConfig struct {
	// BaseURL is the API endpoint. Empty uses the default.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name (e.g., "claude-haiku-4-5").
	Model string
	// MaxTokens is the maximum number of output tokens.
	MaxTokens int64
}

// NewAnthropicEvaluator creates a new Anthropic evaluator.
func NewAnthropicEvaluator(cfg AnthropicConfig) *AnthropicEvaluator {
	var opts []option.RequestOption

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &AnthropicEvaluator{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Provider returns "anthropic".
func (e *AnthropicEvaluator) Provider() string {
	return "anthropic"
}

// Model returns the model name.
func (e *AnthropicEvaluator) Model() string {
	return e.model
}

var evalTracer = otel.Tracer("cactus/evaluator")

// Evaluate sends pane content to the Anthropic API and returns the verdict.
func (e *AnthropicEvaluator) Evaluate(ctx context.Context, content string) (*Verdict, error) {
	userMessage := UserPromptTemplate + content

	// GenAI span named "{operation} {model}" per the OTel semantic conventions.
	ctx, span := evalTracer.Start(ctx, "chat "+e.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", "anthropic"),
			attribute.String("gen_ai.request.model", e.model),
			attribute.Int64("gen_ai.request.max_tokens", e.maxTokens),
		),
	)
	defer span.End()

	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: e.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(userMessage),
			),
		},
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	if len(resp.Content) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("anthropic API returned empty response")
	}

	text := stripMarkdownFences(resp.Content[0].Text)

	span.SetAttributes(
		attribute.String("gen_ai.response.model", e.model),
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)
	if string(resp.StopReason) != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{string(resp.StopReason)}))
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w\nraw response: %s", err, text)
	}

	verdict.Usage = TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	return &verdict, nil
}
