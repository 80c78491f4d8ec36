package conversation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dvloznov/finance-chat/internal/domain"
)

func clarifyingProfile() *domain.UserProfile {
	p := domain.NewProfile("u1")
	p.History = []domain.ConversationTurn{
		{Role: domain.RoleUser, Text: "coffee"},
		{Role: domain.RoleAssistant, Text: "How much?", Clarification: true},
	}
	return p
}

func TestTracker_IsNewConversation(t *testing.T) {
	tr := NewTracker()

	answered := domain.NewProfile("u1")
	answered.History = []domain.ConversationTurn{
		{Role: domain.RoleUser, Text: "coffee 300"},
		{Role: domain.RoleAssistant, Text: "Recorded", Clarification: false},
	}

	tests := []struct {
		name    string
		message string
		profile *domain.UserProfile
		want    bool
	}{
		{"empty history", "150", domain.NewProfile("u1"), true},
		{"short answer after clarification", "150", clarifyingProfile(), false},
		{"five words after clarification", "card raif one two three", clarifyingProfile(), false},
		{"six words after clarification", "one two three four five six", clarifyingProfile(), true},
		{"long message after clarification", strings.Repeat("a", 50), clarifyingProfile(), true},
		{"short message without clarification", "150", answered, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(tt.profile.History)
			if got := tr.IsNewConversation(tt.message, tt.profile); got != tt.want {
				t.Errorf("IsNewConversation(%q) = %v, want %v", tt.message, got, tt.want)
			}
			if len(tt.profile.History) != before {
				t.Error("IsNewConversation must not mutate history")
			}
		})
	}
}

func TestTracker_LooksLikeAnswer_CountsRunes(t *testing.T) {
	tr := NewTracker()
	// 49 Cyrillic letters are 98 bytes but still a short answer.
	if !tr.LooksLikeAnswer(strings.Repeat("д", 49)) {
		t.Error("expected 49-rune message to look like an answer")
	}
}

func TestTracker_HistoryCap(t *testing.T) {
	tr := &Tracker{MaxAnswerLen: 50, MaxAnswerWords: 5, HistoryCap: 3}
	p := domain.NewProfile("u1")

	for i := 0; i < 5; i++ {
		tr.AppendUser(p, fmt.Sprintf("m%d", i))
	}

	if len(p.History) != 3 {
		t.Fatalf("history len = %d, want 3", len(p.History))
	}
	if p.History[0].Text != "m2" || p.History[2].Text != "m4" {
		t.Errorf("expected oldest turns trimmed, got %v", p.History)
	}
}

func TestTracker_AppendAssistantAndClear(t *testing.T) {
	tr := NewTracker()
	p := domain.NewProfile("u1")

	tr.AppendUser(p, "coffee")
	tr.AppendAssistant(p, "How much?", nil, true)
	if !p.AwaitingClarification() {
		t.Error("expected profile to await clarification")
	}

	tr.Clear(p)
	if len(p.History) != 0 {
		t.Errorf("history len = %d after Clear", len(p.History))
	}
}

func TestContext(t *testing.T) {
	if got := Context(nil); got != "" {
		t.Errorf("Context(nil) = %q, want empty", got)
	}

	got := Context(clarifyingProfile().History)
	if !strings.Contains(got, "User: coffee") || !strings.Contains(got, "Assistant: How much?") {
		t.Errorf("unexpected context: %q", got)
	}
}
