package ledger

import (
	"fmt"
	"testing"

	"github.com/dvloznov/finance-chat/internal/domain"
)

func TestLedger_RecordEvictsOldest(t *testing.T) {
	profile := domain.NewProfile("u1")
	l := New(profile, 5)

	for i := 1; i <= 6; i++ {
		l.Record(domain.CandidateOperation{Comment: fmt.Sprintf("op%d", i)})
	}

	if l.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", l.Len())
	}
	if profile.Operations[0].Comment != "op2" {
		t.Errorf("oldest = %q, want op2", profile.Operations[0].Comment)
	}
	last, ok := l.PeekLast()
	if !ok || last.Comment != "op6" {
		t.Errorf("PeekLast() = %q, %v; want op6, true", last.Comment, ok)
	}
}

func TestLedger_PopLast(t *testing.T) {
	profile := domain.NewProfile("u1")
	l := New(profile, 0)

	if _, ok := l.PopLast(); ok {
		t.Fatal("PopLast() on empty ledger should report false")
	}
	if l.HasAny() {
		t.Error("HasAny() on empty ledger should be false")
	}

	l.Record(domain.CandidateOperation{Comment: "a"})
	l.Record(domain.CandidateOperation{Comment: "b"})

	op, ok := l.PopLast()
	if !ok || op.Comment != "b" {
		t.Errorf("PopLast() = %q, %v; want b, true", op.Comment, ok)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
	op, _ = l.PopLast()
	if op.Comment != "a" {
		t.Errorf("PopLast() = %q, want a", op.Comment)
	}
	if _, ok := l.PopLast(); ok {
		t.Error("PopLast() after draining should report false")
	}
}

func TestCompensate(t *testing.T) {
	op := domain.CandidateOperation{
		Kind:     domain.KindExpense,
		Amount:   domain.Amount("1000"),
		Currency: "RSD",
		Account:  "CARD",
		Fund:     "FOOD",
		Comment:  "groceries",
	}

	got := Compensate(op)

	if !got.Amount.Equal(*domain.Amount("-1000")) {
		t.Errorf("Amount = %v, want -1000", got.Amount)
	}
	if got.Comment != "CANCEL: groceries" {
		t.Errorf("Comment = %q", got.Comment)
	}
	if !got.Understood {
		t.Error("compensation must be understood")
	}
	if got.Kind != op.Kind || got.Account != op.Account || got.Fund != op.Fund || got.Currency != op.Currency {
		t.Errorf("compensation changed identity fields: %+v", got)
	}
	if !op.Amount.Equal(*domain.Amount("1000")) {
		t.Error("Compensate must not mutate the original amount")
	}
}

func TestCompensatingEntry(t *testing.T) {
	profile := domain.NewProfile("u1")
	profile.DisplayName = "DIMA"
	op := domain.CandidateOperation{Kind: domain.KindExpense, Amount: domain.Amount("42"), Comment: "tea"}

	entry := CompensatingEntry(profile, op)

	if entry.EntryID == "" {
		t.Error("EntryID should be set")
	}
	if entry.UserID != "u1" || entry.Actor != "DIMA" {
		t.Errorf("UserID=%q Actor=%q", entry.UserID, entry.Actor)
	}
	if !entry.Compensating || entry.Undo {
		t.Errorf("Compensating=%v Undo=%v", entry.Compensating, entry.Undo)
	}
	if entry.Operation.Comment != "CANCEL: tea" {
		t.Errorf("Comment = %q", entry.Operation.Comment)
	}
}
