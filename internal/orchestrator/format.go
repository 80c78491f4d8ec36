package orchestrator

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finance-chat/internal/domain"
)

const correctedPrefix = "✏️ Corrected: "

func formatSuccess(ops []domain.CandidateOperation) string {
	if len(ops) == 1 {
		return formatSingle(ops[0])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Recorded %d operations:\n", len(ops))
	for i, op := range ops {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, formatShort(op))
	}
	return strings.TrimSpace(sb.String())
}

func formatSingle(op domain.CandidateOperation) string {
	amount := op.AmountOrZero().StringFixed(2)
	switch op.Kind {
	case domain.KindExpense:
		return fmt.Sprintf("✅ Recorded expense: %s %s to %s (%s)", amount, op.Currency, op.Fund, op.Account)
	case domain.KindIncome:
		return fmt.Sprintf("✅ Recorded income: %s %s to account %s", amount, op.Currency, op.Account)
	case domain.KindTransfer:
		return fmt.Sprintf("✅ Recorded transfer: %s %s from %s to %s", amount, op.Currency, op.Account, op.SecondAccount)
	case domain.KindCredit:
		return fmt.Sprintf("✅ Recorded credit operation: %s %s", amount, op.Currency)
	default:
		return "✅ Operation recorded"
	}
}

func formatShort(op domain.CandidateOperation) string {
	amount := op.AmountOrZero().StringFixed(0)
	switch op.Kind {
	case domain.KindExpense:
		label := op.Comment
		if label == "" {
			label = op.Fund
		}
		return fmt.Sprintf("%s %s — %s", amount, op.Currency, label)
	case domain.KindIncome:
		return fmt.Sprintf("+%s %s — income", amount, op.Currency)
	case domain.KindTransfer:
		return fmt.Sprintf("%s %s — transfer", amount, op.Currency)
	case domain.KindCredit:
		return fmt.Sprintf("%s %s — credit", amount, op.Currency)
	default:
		return "operation"
	}
}

// formatCorrection describes the first field that changed between the
// operation being replaced and its replacement.
func formatCorrection(old, updated domain.CandidateOperation) string {
	prefix := correctedPrefix
	switch {
	case !old.AmountOrZero().Equal(updated.AmountOrZero()):
		return prefix + fmt.Sprintf("%s → %s %s",
			old.AmountOrZero().StringFixed(0), updated.AmountOrZero().StringFixed(0), updated.Currency)
	case old.Account != updated.Account:
		return prefix + fmt.Sprintf("%s → %s", old.Account, updated.Account)
	case old.Fund != updated.Fund:
		return prefix + fmt.Sprintf("%s → %s", old.Fund, updated.Fund)
	case old.Comment != updated.Comment:
		return prefix + fmt.Sprintf("'%s' → '%s'", old.Comment, updated.Comment)
	default:
		return prefix + formatShort(updated)
	}
}
