// Package pending reconciles partially-specified operations across turns.
package pending

import "github.com/dvloznov/finance-chat/internal/domain"

// Merge combines the stored pending operations with a fresh interpreter batch.
//
// pending[i] pairs with fresh[i]. Pending entries beyond the end of fresh
// are merged against fresh[0]. Fresh entries beyond the end of pending pass
// through unchanged. An empty fresh slice returns pending as is.
func Merge(pending, fresh []domain.CandidateOperation) []domain.CandidateOperation {
	if len(fresh) == 0 {
		return pending
	}
	if len(pending) == 0 {
		return fresh
	}

	out := make([]domain.CandidateOperation, 0, max(len(pending), len(fresh)))
	for i, p := range pending {
		if i < len(fresh) {
			out = append(out, MergeOne(p, fresh[i]))
		} else {
			out = append(out, MergeOne(p, fresh[0]))
		}
	}
	if len(fresh) > len(pending) {
		out = append(out, fresh[len(pending):]...)
	}
	return out
}

// MergeOne fills pending's fields from fresh where fresh has a usable value.
// The understood, error and clarification flags always come from fresh.
func MergeOne(pending, fresh domain.CandidateOperation) domain.CandidateOperation {
	merged := domain.CandidateOperation{
		Kind:           pending.Kind,
		Amount:         pending.Amount,
		Currency:       pick(fresh.Currency, pending.Currency),
		Account:        pick(fresh.Account, pending.Account),
		Fund:           pick(fresh.Fund, pending.Fund),
		Comment:        pick(fresh.Comment, pending.Comment),
		SecondPerson:   pick(fresh.SecondPerson, pending.SecondPerson),
		SecondAccount:  pick(fresh.SecondAccount, pending.SecondAccount),
		SecondCurrency: pick(fresh.SecondCurrency, pending.SecondCurrency),

		Understood:    fresh.Understood,
		Error:         fresh.Error,
		Clarification: fresh.Clarification,
	}

	// UNKNOWN carries no information, so it never overwrites a stated kind.
	if fresh.Kind.Known() || merged.Kind == "" {
		if fresh.Kind != "" {
			merged.Kind = fresh.Kind
		}
	}
	if fresh.HasAmount() {
		merged.Amount = fresh.Amount
	}
	return merged
}

func pick(fresh, pending string) string {
	if fresh != "" {
		return fresh
	}
	return pending
}
