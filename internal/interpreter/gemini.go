package interpreter

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiModel calls Gemini through the genai SDK.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini backend. With an empty apiKey the client
// is configured from the environment (GOOGLE_* variables, Vertex AI).
func NewGeminiModel(ctx context.Context, model, apiKey string) (*GeminiModel, error) {
	cc := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cc.APIKey = apiKey
		cc.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Generate sends prompt as a single user turn.
func (g *GeminiModel) Generate(ctx context.Context, prompt string) (string, domain.TokenUsage, error) {
	usage := domain.TokenUsage{Model: g.model}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", usage, fmt.Errorf("GeminiModel.Generate: generate content: %w", err)
	}

	if md := resp.UsageMetadata; md != nil {
		usage.PromptTokens = int(md.PromptTokenCount)
		usage.CompletionTokens = int(md.CandidatesTokenCount)
		usage.ReasoningTokens = int(md.ThoughtsTokenCount)
	}

	text := resp.Text()
	if text == "" {
		return "", usage, fmt.Errorf("GeminiModel.Generate: empty response from model")
	}
	return text, usage, nil
}
