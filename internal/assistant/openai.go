// ABOUTME: Assistant backed by an OpenAI-compatible chat completions endpoint
// ABOUTME: Sends each prompt as a single user message and returns the first choice

package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIOptions configures an OpenAI assistant.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAI is a stateless assistant: each prompt is answered on its own.
type OpenAI struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAI creates an assistant for the configured endpoint.
func NewOpenAI(opts OpenAIOptions, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  model,
		logger: logger.With("component", "openai_assistant"),
	}
}

// Chat requests one completion for prompt.
func (o *OpenAI) Chat(ctx context.Context, prompt string) (Reply, error) {
	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return Reply{}, &Error{Err: fmt.Errorf("openai chat: %w", err)}
	}

	o.logger.DebugContext(ctx, "chat completed",
		"model", o.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	if len(resp.Choices) == 0 {
		return Structured(nil), nil
	}
	return StructuredContent(resp.Choices[0].Message.Content), nil
}
