package interpreter

import (
	"context"
	"time"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/logger"
	"github.com/dvloznov/finance-chat/internal/metrics"
	"github.com/dvloznov/finance-chat/internal/onboarding"
)

// RetryClarification is the neutral reply used when interpretation fails.
const RetryClarification = "Sorry, please try again."

// Interpreter converts a message plus profile context into a CandidateBatch.
type Interpreter interface {
	Interpret(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch
}

// LLMInterpreter implements Interpreter and onboarding.Extractor on top of a Model.
type LLMInterpreter struct {
	model   Model
	timeout time.Duration
}

var _ Interpreter = (*LLMInterpreter)(nil)
var _ onboarding.Extractor = (*LLMInterpreter)(nil)

// New creates an LLMInterpreter. A non-positive timeout disables the deadline.
func New(model Model, timeout time.Duration) *LLMInterpreter {
	return &LLMInterpreter{model: model, timeout: timeout}
}

// Interpret never fails: model and decoding errors become an un-understood
// batch carrying the error text and a retry clarification.
func (i *LLMInterpreter) Interpret(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
	log := logger.FromContext(ctx)

	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	prompt := BuildCommandPrompt(message, profile)
	log.Debug().Int("prompt_len", len(prompt)).Msg("interpreting message")

	start := time.Now()
	raw, usage, err := i.model.Generate(ctx, prompt)
	metrics.RecordTokens(usage.Model, usage.PromptTokens, usage.CompletionTokens, usage.ReasoningTokens)
	if err != nil {
		metrics.RecordInterpreterCall("interpret", "error", time.Since(start).Seconds())
		log.Error().Err(err).Msg("interpreter model call failed")
		return failedBatch(err, &usage)
	}

	batch, err := parseBatch(raw)
	if err != nil {
		metrics.RecordInterpreterCall("interpret", "error", time.Since(start).Seconds())
		log.Error().Err(err).Str("raw", raw).Msg("interpreter returned malformed output")
		return failedBatch(err, &usage)
	}
	metrics.RecordInterpreterCall("interpret", "success", time.Since(start).Seconds())
	batch.Usage = &usage

	log.Info().
		Bool("understood", batch.Understood).
		Int("operations", len(batch.Operations)).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Msg("message interpreted")

	return batch
}

// Extract runs one onboarding step through the model.
func (i *LLMInterpreter) Extract(ctx context.Context, message string, profile *domain.UserProfile, state domain.OnboardingState) (onboarding.Extraction, error) {
	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	prompt := BuildOnboardingPrompt(profile, state) + "\n### User message ###\n" + message

	start := time.Now()
	raw, usage, err := i.model.Generate(ctx, prompt)
	metrics.RecordTokens(usage.Model, usage.PromptTokens, usage.CompletionTokens, usage.ReasoningTokens)
	if err != nil {
		metrics.RecordInterpreterCall("extract", "error", time.Since(start).Seconds())
		return onboarding.Extraction{}, err
	}
	ext, err := parseExtraction(raw)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordInterpreterCall("extract", status, time.Since(start).Seconds())
	return ext, err
}

func (i *LLMInterpreter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, i.timeout)
}

func failedBatch(err error, usage *domain.TokenUsage) domain.CandidateBatch {
	return domain.CandidateBatch{
		Understood:    false,
		Error:         "Error: " + err.Error(),
		Clarification: RetryClarification,
		Usage:         usage,
	}
}
