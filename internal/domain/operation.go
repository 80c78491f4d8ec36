package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OperationKind is the financial kind of a candidate operation.
type OperationKind string

const (
	KindIncome   OperationKind = "INCOME"
	KindExpense  OperationKind = "EXPENSES"
	KindTransfer OperationKind = "TRANSFER"
	KindCredit   OperationKind = "CREDIT"
	KindUnknown  OperationKind = "UNKNOWN"
)

// ParseOperationKind maps free-form kind names onto the closed set.
// Empty input yields the empty kind, which means "not stated".
func ParseOperationKind(s string) OperationKind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return ""
	case "INCOME":
		return KindIncome
	case "EXPENSE", "EXPENSES":
		return KindExpense
	case "TRANSFER":
		return KindTransfer
	case "CREDIT":
		return KindCredit
	default:
		return KindUnknown
	}
}

// Known reports whether k is one of the committable kinds.
func (k OperationKind) Known() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer, KindCredit:
		return true
	}
	return false
}

// CandidateOperation is one financial action as understood so far.
// Empty strings and a nil Amount mean the field is not yet known.
type CandidateOperation struct {
	Kind     OperationKind    `json:"kind"`
	Amount   *decimal.Decimal `json:"amount"`
	Currency string           `json:"currency,omitempty"`
	Account  string           `json:"account,omitempty"`
	Fund     string           `json:"fund,omitempty"`
	Comment  string           `json:"comment,omitempty"`

	// Transfer counter-party.
	SecondPerson   string `json:"second_person,omitempty"`
	SecondAccount  string `json:"second_account,omitempty"`
	SecondCurrency string `json:"second_currency,omitempty"`

	Understood    bool   `json:"understood"`
	Error         string `json:"error,omitempty"`
	Clarification string `json:"clarification,omitempty"`
}

// HasAmount reports whether the amount is present and positive.
func (op CandidateOperation) HasAmount() bool {
	return op.Amount != nil && op.Amount.IsPositive()
}

// AmountOrZero returns the amount, or zero when unknown.
func (op CandidateOperation) AmountOrZero() decimal.Decimal {
	if op.Amount == nil {
		return decimal.Zero
	}
	return *op.Amount
}

// Amount is a convenience constructor for literal amounts.
func Amount(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// MetaCommand is a non-financial intent detected by the interpreter.
type MetaCommand struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Present reports whether a meta-command type was supplied.
func (m *MetaCommand) Present() bool {
	return m != nil && strings.TrimSpace(m.Type) != ""
}

// SetAsDefault carries defaults the user asked to persist.
type SetAsDefault struct {
	Account  string `json:"account,omitempty"`
	Currency string `json:"currency,omitempty"`
	Fund     string `json:"fund,omitempty"`
}

// HasAny reports whether at least one default is set.
func (s *SetAsDefault) HasAny() bool {
	return s != nil && (s.Account != "" || s.Currency != "" || s.Fund != "")
}

// TokenUsage is the model token accounting for one interpreter call.
type TokenUsage struct {
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	ReasoningTokens  int    `json:"reasoning_tokens,omitempty"`
}

// CandidateBatch is the result of one interpreter invocation.
type CandidateBatch struct {
	Operations           []CandidateOperation
	Understood           bool
	Clarification        string
	Error                string
	Correction           bool
	SetAsDefault         *SetAsDefault
	Meta                 *MetaCommand
	SuggestedInstruction string
	Usage                *TokenUsage
}

// AllKnown reports whether the batch is committable: understood, non-empty
// and every operation carries a known kind.
func (b CandidateBatch) AllKnown() bool {
	if !b.Understood || len(b.Operations) == 0 {
		return false
	}
	for _, op := range b.Operations {
		if !op.Kind.Known() {
			return false
		}
	}
	return true
}

// First returns the first operation, if any.
func (b CandidateBatch) First() (CandidateOperation, bool) {
	if len(b.Operations) == 0 {
		return CandidateOperation{}, false
	}
	return b.Operations[0], true
}
