package orchestrator

import (
	"context"
	"strings"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/ledger"
)

// FallbackReply is shown when the interpreter returned neither a
// clarification nor an error for an uncommittable batch.
const FallbackReply = "?"

// finalize commits a fully understood batch or keeps it pending and asks
// the interpreter's clarification question.
func (o *Orchestrator) finalize(ctx context.Context, t *turn, batch domain.CandidateBatch) {
	l := ledger.New(t.profile, o.opCap)

	var message string
	success := batch.AllKnown()
	switch {
	case success && batch.Correction:
		if last, ok := l.PeekLast(); ok {
			message = formatCorrection(last, batch.Operations[0])
		} else {
			message = correctedPrefix + formatShort(batch.Operations[0])
		}
	case success:
		message = formatSuccess(batch.Operations)
	default:
		message = o.clarificationText(t, batch)
	}

	t.respond(StageFinalize, message, success)
	t.reply.Operations = batch.Operations
	if success {
		t.reply.OperationsCount = len(batch.Operations)
	}

	wasClarification := !batch.Understood && batch.Clarification != ""
	var first *domain.CandidateOperation
	if op, ok := batch.First(); ok {
		first = &op
	}
	o.tracker.AppendAssistant(t.profile, message, first, wasClarification)

	if !success {
		if len(batch.Operations) > 0 {
			t.profile.PendingCommands = append([]domain.CandidateOperation(nil), batch.Operations...)
			t.log.Info().Int("pending", len(batch.Operations)).Msg("saved pending commands for clarification")
		}
		return
	}

	t.profile.PendingCommands = nil

	if batch.Correction {
		if last, ok := l.PopLast(); ok {
			t.log.Info().
				Str("amount", last.AmountOrZero().String()).
				Str("comment", last.Comment).
				Msg("correction: cancelling previous operation")
			t.entries = append(t.entries, ledger.CompensatingEntry(t.profile, last))
		}
	}

	for _, op := range batch.Operations {
		t.entries = append(t.entries, ledger.NewEntry(t.profile, op))
		l.Record(op)
	}

	if s := strings.TrimSpace(batch.SuggestedInstruction); s != "" {
		t.profile.PendingSuggestion = s
		t.reply.Message += "\n\n💡 Remember: \"" + s + "\"? (yes/no)"
	}

	if batch.SetAsDefault.HasAny() {
		if lines := applyDefaults(t.profile, *batch.SetAsDefault); lines != "" {
			t.reply.Message += "\n\n" + lines
		}
	}

	// Pending suggestion survives; only the dialogue is reset.
	o.tracker.Clear(t.profile)
}

func (o *Orchestrator) clarificationText(t *turn, batch domain.CandidateBatch) string {
	if s := strings.TrimSpace(batch.Clarification); s != "" {
		return batch.Clarification
	}
	if s := strings.TrimSpace(batch.Error); s != "" {
		return batch.Error
	}
	t.log.Warn().
		Str("tag", "interpreter_contract_violation").
		Bool("understood", batch.Understood).
		Int("operations", len(batch.Operations)).
		Msg("interpreter returned neither clarification nor error")
	return FallbackReply
}

func applyDefaults(profile *domain.UserProfile, d domain.SetAsDefault) string {
	var lines []string
	if v := domain.NormalizeCode(d.Account); v != "" {
		profile.DefaultAccount = v
		lines = append(lines, "📌 Default account: "+v)
	}
	if v := domain.NormalizeCode(d.Currency); v != "" {
		profile.DefaultCurrency = v
		lines = append(lines, "📌 Default currency: "+v)
	}
	if v := domain.NormalizeCode(d.Fund); v != "" {
		profile.DefaultFund = v
		lines = append(lines, "📌 Default fund: "+v)
	}
	return strings.Join(lines, "\n")
}
