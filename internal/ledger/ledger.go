// Package ledger keeps the bounded per-user record of recently committed
// operations used for corrections and undo.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// DefaultCapacity is the number of operations retained per profile.
const DefaultCapacity = 5

// Ledger is a bounded stack over a profile's Operations list.
// The last element is the most recent operation.
type Ledger struct {
	profile  *domain.UserProfile
	capacity int
}

// New returns a Ledger backed by profile. A non-positive capacity uses
// DefaultCapacity.
func New(profile *domain.UserProfile, capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{profile: profile, capacity: capacity}
}

// Record pushes op, evicting the oldest entry when over capacity.
func (l *Ledger) Record(op domain.CandidateOperation) {
	ops := append(l.profile.Operations, op)
	if over := len(ops) - l.capacity; over > 0 {
		ops = append([]domain.CandidateOperation(nil), ops[over:]...)
	}
	l.profile.Operations = ops
}

// PeekLast returns the most recent operation without removing it.
func (l *Ledger) PeekLast() (domain.CandidateOperation, bool) {
	n := len(l.profile.Operations)
	if n == 0 {
		return domain.CandidateOperation{}, false
	}
	return l.profile.Operations[n-1], true
}

// PopLast removes and returns the most recent operation.
func (l *Ledger) PopLast() (domain.CandidateOperation, bool) {
	op, ok := l.PeekLast()
	if !ok {
		return op, false
	}
	l.profile.Operations = l.profile.Operations[:len(l.profile.Operations)-1]
	return op, true
}

// HasAny reports whether at least one operation is recorded.
func (l *Ledger) HasAny() bool {
	return len(l.profile.Operations) > 0
}

// Len returns the number of recorded operations.
func (l *Ledger) Len() int {
	return len(l.profile.Operations)
}

// Compensate builds the operation that cancels op: same fields, negated
// amount and a CANCEL-prefixed comment.
func Compensate(op domain.CandidateOperation) domain.CandidateOperation {
	out := op
	if op.Amount != nil {
		neg := op.Amount.Neg()
		out.Amount = &neg
	}
	out.Comment = "CANCEL: " + op.Comment
	out.Understood = true
	out.Error = ""
	out.Clarification = ""
	return out
}

// NewEntry wraps op for dispatch on behalf of profile.
func NewEntry(profile *domain.UserProfile, op domain.CandidateOperation) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:   uuid.New().String(),
		UserID:    profile.UserID,
		Actor:     profile.ActorName(),
		Operation: op,
		CreatedAt: time.Now().UTC(),
	}
}

// CompensatingEntry wraps the compensation of op for dispatch.
func CompensatingEntry(profile *domain.UserProfile, op domain.CandidateOperation) domain.LedgerEntry {
	entry := NewEntry(profile, Compensate(op))
	entry.Compensating = true
	return entry
}
