package interpreter

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// DefaultOpenAIModel is used when no model name is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIModel calls the OpenAI chat completions API.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates an OpenAI backend.
func NewOpenAIModel(model, apiKey string) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewOpenAIModel: OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIModel{client: openai.NewClient(apiKey), model: model}, nil
}

// Generate sends prompt as a single user message.
func (o *OpenAIModel) Generate(ctx context.Context, prompt string) (string, domain.TokenUsage, error) {
	usage := domain.TokenUsage{Model: o.model}

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: 2000,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", usage, fmt.Errorf("OpenAIModel.Generate: chat completion: %w", err)
	}

	usage.PromptTokens = resp.Usage.PromptTokens
	usage.CompletionTokens = resp.Usage.CompletionTokens
	if d := resp.Usage.CompletionTokensDetails; d != nil {
		usage.ReasoningTokens = d.ReasoningTokens
	}

	if len(resp.Choices) == 0 {
		return "", usage, fmt.Errorf("OpenAIModel.Generate: no choices returned")
	}
	return resp.Choices[0].Message.Content, usage, nil
}
