package orchestrator

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finance-chat/internal/domain"
)

const debugRule = "━━━━━━━━━━━━━━━━━━━━"

// debugBlock renders interpreter output and conversation state for users
// with debug mode on.
func debugBlock(batch domain.CandidateBatch, profile *domain.UserProfile) string {
	var sb strings.Builder
	sb.WriteString("🔧 DEBUG:\n")
	sb.WriteString(debugRule + "\n")

	if u := batch.Usage; u != nil {
		fmt.Fprintf(&sb, "tokens: %s prompt=%d completion=%d", u.Model, u.PromptTokens, u.CompletionTokens)
		if u.ReasoningTokens > 0 {
			fmt.Fprintf(&sb, " reasoning=%d", u.ReasoningTokens)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "understood: %t\n", batch.Understood)
	fmt.Fprintf(&sb, "commands: %d\n", len(batch.Operations))

	if batch.Meta.Present() {
		fmt.Fprintf(&sb, "metaCommand: %s = %s\n", batch.Meta.Type, batch.Meta.Value)
	}
	if batch.Clarification != "" {
		fmt.Fprintf(&sb, "clarification: %s\n", batch.Clarification)
	}
	if batch.Correction {
		sb.WriteString("correction: true\n")
	}

	if len(batch.Operations) > 0 {
		sb.WriteString("\nOperations:\n")
		for i, op := range batch.Operations {
			amount := "null"
			if op.Amount != nil {
				amount = op.Amount.String()
			}
			fmt.Fprintf(&sb, "  %d. %s %s %s → %s / %s\n",
				i+1, op.Kind, amount, op.Currency, op.Account, op.Fund)
		}
	}

	sb.WriteString("\nContext:\n")
	fmt.Fprintf(&sb, "  pendingCommands: %d\n", len(profile.PendingCommands))
	fmt.Fprintf(&sb, "  awaitingClarification: %t\n", profile.AwaitingClarification())
	fmt.Fprintf(&sb, "  historySize: %d\n", len(profile.History))

	sb.WriteString(debugRule)
	return sb.String()
}
