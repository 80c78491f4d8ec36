package domain

import (
	"encoding/json"
	"testing"
)

func TestParseOperationKind(t *testing.T) {
	tests := []struct {
		in   string
		want OperationKind
	}{
		{"", ""},
		{"income", KindIncome},
		{"EXPENSE", KindExpense},
		{" expenses ", KindExpense},
		{"Transfer", KindTransfer},
		{"CREDIT", KindCredit},
		{"refund", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseOperationKind(tt.in); got != tt.want {
				t.Errorf("ParseOperationKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCandidateBatch_AllKnown(t *testing.T) {
	tests := []struct {
		name  string
		batch CandidateBatch
		want  bool
	}{
		{"not understood", CandidateBatch{Operations: []CandidateOperation{{Kind: KindExpense}}}, false},
		{"no operations", CandidateBatch{Understood: true}, false},
		{"unknown kind", CandidateBatch{Understood: true, Operations: []CandidateOperation{{Kind: KindExpense}, {Kind: KindUnknown}}}, false},
		{"empty kind", CandidateBatch{Understood: true, Operations: []CandidateOperation{{}}}, false},
		{"all known", CandidateBatch{Understood: true, Operations: []CandidateOperation{{Kind: KindExpense}, {Kind: KindTransfer}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.batch.AllKnown(); got != tt.want {
				t.Errorf("AllKnown() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"crypto wallet", "CRYPTO_WALLET"},
		{"  card   raif ", "CARD_RAIF"},
		{"CASH", "CASH"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLinkedUserID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"KIKI (12345)", "12345"},
		{"12345", "12345"},
		{" a (b) (c) ", "c"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseLinkedUserID(tt.in); got != tt.want {
			t.Errorf("ParseLinkedUserID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUserProfile_JSONPreservesEmptyVersusUnset(t *testing.T) {
	p := NewProfile("u1")
	p.Accounts = []string{"CARD"}
	p.ClearInstructions()

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got UserProfile
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Instructions == nil || len(got.Instructions) != 0 {
		t.Errorf("Instructions = %#v, want explicit empty slice", got.Instructions)
	}
	if got.Funds != nil {
		t.Errorf("Funds = %#v, want nil (never set)", got.Funds)
	}
	if len(got.Accounts) != 1 || got.Accounts[0] != "CARD" {
		t.Errorf("Accounts = %v, want [CARD]", got.Accounts)
	}
}

func TestUserProfile_WithEmptyLists(t *testing.T) {
	p := NewProfile("u1")
	p.Accounts = []string{"CARD"}

	view := p.WithEmptyLists()
	if view.Funds == nil || view.History == nil || view.Operations == nil {
		t.Errorf("view has nil lists: %+v", view)
	}
	if len(view.Accounts) != 1 {
		t.Errorf("Accounts = %v, want [CARD]", view.Accounts)
	}
	if p.Funds != nil {
		t.Errorf("original profile was modified: Funds = %#v", p.Funds)
	}
}

func TestUserProfile_InstructionHelpers(t *testing.T) {
	p := NewProfile("u1")

	if !p.AddInstruction("coffee = FOOD") {
		t.Fatal("first AddInstruction should insert")
	}
	if p.AddInstruction("coffee = FOOD") {
		t.Error("duplicate AddInstruction should not insert")
	}
	if _, ok := p.RemoveInstruction(5); ok {
		t.Error("out of range RemoveInstruction should fail")
	}
	removed, ok := p.RemoveInstruction(0)
	if !ok || removed != "coffee = FOOD" {
		t.Errorf("RemoveInstruction(0) = %q, %v", removed, ok)
	}
	if len(p.Instructions) != 0 {
		t.Errorf("Instructions = %v, want empty", p.Instructions)
	}
}

func TestUserProfile_AwaitingClarification(t *testing.T) {
	p := NewProfile("u1")
	if p.AwaitingClarification() {
		t.Error("empty history should not await clarification")
	}

	p.History = []ConversationTurn{
		{Role: RoleUser, Text: "coffee"},
		{Role: RoleAssistant, Text: "How much?", Clarification: true},
	}
	if !p.AwaitingClarification() {
		t.Error("expected clarification after assistant question")
	}

	p.History = append(p.History, ConversationTurn{Role: RoleUser, Text: "300"})
	if !p.AwaitingClarification() {
		t.Error("trailing user turn should not hide the last assistant question")
	}
}
