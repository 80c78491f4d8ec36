// Package orchestrator runs one inbound chat message through the command
// resolution pipeline: admin commands, onboarding, learning answers,
// conversation reset, interpretation, pending merge, meta routing and
// financial finalization.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-chat/internal/config"
	"github.com/dvloznov/finance-chat/internal/conversation"
	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/interpreter"
	"github.com/dvloznov/finance-chat/internal/ledger"
	"github.com/dvloznov/finance-chat/internal/logger"
	"github.com/dvloznov/finance-chat/internal/meta"
	"github.com/dvloznov/finance-chat/internal/metrics"
	"github.com/dvloznov/finance-chat/internal/onboarding"
	"github.com/dvloznov/finance-chat/internal/pending"
)

var (
	// ErrPersistence wraps profile store failures. Nothing is dispatched
	// when Process returns it.
	ErrPersistence = errors.New("profile persistence failed")

	// ErrInvalidRequest is returned for requests without a user id.
	ErrInvalidRequest = errors.New("invalid chat request")
)

// FailureReply is the neutral text transports show when Process fails.
const FailureReply = "Sorry, something went wrong. Please try again."

// Stage names, used for logging and metrics.
const (
	StageAdmin      = "admin"
	StageOnboarding = "onboarding"
	StageLearning   = "learning"
	StageMeta       = "meta"
	StageFinalize   = "finalize"
)

// Profiles is the profile store the orchestrator reads and writes.
type Profiles interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	Save(ctx context.Context, profile *domain.UserProfile) error
	Delete(ctx context.Context, userID string) error
}

// OperationDispatcher hands committed ledger entries downstream. Fire-and-forget.
type OperationDispatcher interface {
	Dispatch(ctx context.Context, entry domain.LedgerEntry)
}

// ReplyDispatcher hands replies to the chat platform. Fire-and-forget.
type ReplyDispatcher interface {
	Deliver(ctx context.Context, reply domain.ChatResponse)
}

// Options holds the orchestration limits.
type Options struct {
	HistoryCap       int
	OperationCap     int
	ShortAnswerLen   int
	ShortAnswerWords int
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{HistoryCap: 20, OperationCap: ledger.DefaultCapacity, ShortAnswerLen: 50, ShortAnswerWords: 5}
}

// OptionsFromConfig maps engine configuration onto Options.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		HistoryCap:       cfg.HistoryCap,
		OperationCap:     cfg.OperationCap,
		ShortAnswerLen:   cfg.ShortAnswerLen,
		ShortAnswerWords: cfg.ShortAnswerWord,
	}
}

// Orchestrator is stateless between calls; all per-user state lives in the
// profile loaded at the start of Process and saved at its end.
type Orchestrator struct {
	profiles   Profiles
	interp     interpreter.Interpreter
	onboarding *onboarding.Machine
	router     *meta.Router
	tracker    *conversation.Tracker
	operations OperationDispatcher
	replies    ReplyDispatcher
	opCap      int
}

// New wires an Orchestrator.
func New(
	profiles Profiles,
	interp interpreter.Interpreter,
	extractor onboarding.Extractor,
	operations OperationDispatcher,
	replies ReplyDispatcher,
	opts Options,
) *Orchestrator {
	def := DefaultOptions()
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = def.HistoryCap
	}
	if opts.OperationCap <= 0 {
		opts.OperationCap = def.OperationCap
	}
	if opts.ShortAnswerLen <= 0 {
		opts.ShortAnswerLen = def.ShortAnswerLen
	}
	if opts.ShortAnswerWords <= 0 {
		opts.ShortAnswerWords = def.ShortAnswerWords
	}

	return &Orchestrator{
		profiles:   profiles,
		interp:     interp,
		onboarding: onboarding.NewMachine(extractor),
		router:     meta.NewRouter(opts.OperationCap),
		tracker: &conversation.Tracker{
			MaxAnswerLen:   opts.ShortAnswerLen,
			MaxAnswerWords: opts.ShortAnswerWords,
			HistoryCap:     opts.HistoryCap,
		},
		operations: operations,
		replies:    replies,
		opCap:      opts.OperationCap,
	}
}

// turn is the per-invocation working state.
type turn struct {
	req     domain.ChatRequest
	message string
	profile *domain.UserProfile
	log     zerolog.Logger

	stage   string
	reply   domain.ChatResponse
	entries []domain.LedgerEntry
	batch   *domain.CandidateBatch

	// deleteProfile replaces the final save with a delete.
	deleteProfile bool
}

func (t *turn) respond(stage, message string, success bool) {
	t.stage = stage
	t.reply = domain.ChatResponse{
		ChatID:  t.req.ChatID,
		Message: message,
		Success: success,
	}
}

// Process handles one inbound message. It performs exactly one profile
// save (or delete, for a reset), then dispatches any committed entries and
// delivers the reply. A returned error wraps ErrPersistence or
// ErrInvalidRequest; in that case nothing was dispatched.
func (o *Orchestrator) Process(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	start := time.Now()

	if strings.TrimSpace(req.UserID) == "" {
		return domain.ChatResponse{}, fmt.Errorf("Process: %w: user id is required", ErrInvalidRequest)
	}

	ctx = logger.Enrich(ctx, map[string]interface{}{
		"user_id": req.UserID,
		"chat_id": req.ChatID,
	})
	log := logger.FromContext(ctx)
	log.Info().Str("user_name", req.UserName).Msg("processing chat message")

	profile, err := o.profiles.Get(ctx, req.UserID)
	if err != nil {
		metrics.RecordMessage("load", "error", time.Since(start).Seconds())
		return domain.ChatResponse{}, fmt.Errorf("Process: loading profile: %w: %w", ErrPersistence, err)
	}
	if profile.UserID == "" {
		profile.UserID = req.UserID
	}

	t := &turn{
		req:     req,
		message: strings.TrimSpace(req.Message),
		profile: profile,
		log:     log,
	}

	o.run(ctx, t)

	if err := o.commit(ctx, t); err != nil {
		metrics.RecordMessage(t.stage, "error", time.Since(start).Seconds())
		return domain.ChatResponse{}, err
	}

	for _, entry := range t.entries {
		o.operations.Dispatch(ctx, entry)
	}

	if t.profile.Debug && t.batch != nil {
		t.reply.Message += "\n\n" + debugBlock(*t.batch, t.profile)
	}
	o.replies.Deliver(ctx, t.reply)

	outcome := "success"
	if !t.reply.Success {
		outcome = "clarification"
	}
	metrics.RecordMessage(t.stage, outcome, time.Since(start).Seconds())

	log.Info().
		Str("stage", t.stage).
		Bool("success", t.reply.Success).
		Int("dispatched", len(t.entries)).
		Dur("elapsed", time.Since(start)).
		Msg("chat message processed")

	return t.reply, nil
}

// run walks the stages until one produces the reply.
func (o *Orchestrator) run(ctx context.Context, t *turn) {
	if o.handleAdmin(ctx, t) {
		return
	}

	if onboarding.NeedsOnboarding(t.profile) {
		step := o.onboarding.HandleStep(ctx, t.message, t.profile)
		t.log.Info().
			Str("from", string(step.From)).
			Str("to", string(step.To)).
			Bool("step_complete", step.StepComplete).
			Msg("onboarding step handled")
		t.respond(StageOnboarding, step.Reply, true)
		return
	}

	if o.handleLearning(ctx, t) {
		return
	}

	if o.tracker.IsNewConversation(t.message, t.profile) {
		t.log.Debug().Msg("new conversation, clearing history and pending commands")
		t.profile.ClearConversation()
	} else {
		t.log.Debug().Int("history", len(t.profile.History)).Msg("continuing conversation")
	}

	o.tracker.AppendUser(t.profile, t.message)
	o.loadLinked(ctx, t.profile)

	batch := o.interp.Interpret(ctx, t.message, t.profile)
	t.batch = &batch

	if len(t.profile.PendingCommands) > 0 && len(batch.Operations) > 0 {
		batch.Operations = pending.Merge(t.profile.PendingCommands, batch.Operations)
		t.log.Info().Int("operations", len(batch.Operations)).Msg("merged pending commands")
	}

	if batch.Meta.Present() {
		out := o.router.Route(ctx, *batch.Meta, batch.Clarification, t.profile)
		if out.Handled {
			t.respond(StageMeta, out.Reply, out.Success)
			t.entries = append(t.entries, out.Entries...)
			return
		}
	}

	o.finalize(ctx, t, batch)
}

// commit persists the profile exactly once.
func (o *Orchestrator) commit(ctx context.Context, t *turn) error {
	if t.deleteProfile {
		if err := o.profiles.Delete(ctx, t.profile.UserID); err != nil {
			return fmt.Errorf("Process: deleting profile: %w: %w", ErrPersistence, err)
		}
		return nil
	}

	now := time.Now().UTC()
	if t.profile.CreatedAt.IsZero() {
		t.profile.CreatedAt = now
	}
	t.profile.UpdatedAt = now

	if err := o.profiles.Save(ctx, t.profile); err != nil {
		return fmt.Errorf("Process: saving profile: %w: %w", ErrPersistence, err)
	}
	return nil
}
