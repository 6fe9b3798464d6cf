package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider against the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a provider for the given API key and model name.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("oracle: missing API key")
	}
	if model == "" {
		return nil, errors.New("oracle: missing model name")
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai/" + p.model
}

// Complete sends the prompt as a system+user message pair and returns the
// first choice verbatim. Timeouts and cancellation come in via ctx.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		}),
		Model:       openai.F(p.model),
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("oracle: completion returned no choices")
	}
	return &Response{Content: completion.Choices[0].Message.Content}, nil
}
