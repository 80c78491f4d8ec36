// Package interpreter turns chat messages into structured candidate
// operations using a language model.
package interpreter

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-chat/internal/config"
	"github.com/dvloznov/finance-chat/internal/domain"
)

// Model is a text-in, text-out language model backend.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, domain.TokenUsage, error)
}

// NewModel builds the backend selected by cfg.Provider.
func NewModel(ctx context.Context, cfg config.InterpreterConfig) (Model, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiModel(ctx, cfg.GeminiModel, cfg.GeminiAPIKey)
	case "openai":
		return NewOpenAIModel(cfg.OpenAIModel, cfg.OpenAIAPIKey)
	default:
		return nil, fmt.Errorf("NewModel: unknown provider %q", cfg.Provider)
	}
}
