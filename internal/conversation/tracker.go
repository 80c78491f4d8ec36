// Package conversation decides whether a message continues an outstanding
// clarification and keeps the per-user history bounded.
package conversation

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// Tracker classifies messages and maintains bounded conversation history.
type Tracker struct {
	// MaxAnswerLen is the exclusive character limit for a short answer.
	MaxAnswerLen int
	// MaxAnswerWords is the inclusive word limit for a short answer.
	MaxAnswerWords int
	// HistoryCap is the number of turns kept per profile.
	HistoryCap int
}

// NewTracker returns a Tracker with the standard thresholds.
func NewTracker() *Tracker {
	return &Tracker{MaxAnswerLen: 50, MaxAnswerWords: 5, HistoryCap: 20}
}

// IsNewConversation reports whether message starts a new conversation.
// It does not mutate the profile; callers clear history and pending
// commands on a true verdict.
func (t *Tracker) IsNewConversation(message string, profile *domain.UserProfile) bool {
	if len(profile.History) == 0 {
		return true
	}
	if profile.AwaitingClarification() && t.LooksLikeAnswer(message) {
		return false
	}
	return true
}

// LooksLikeAnswer reports whether message is short enough to be a reply
// to a clarification question.
func (t *Tracker) LooksLikeAnswer(message string) bool {
	trimmed := strings.TrimSpace(message)
	return utf8.RuneCountInString(trimmed) < t.MaxAnswerLen &&
		len(strings.Fields(trimmed)) <= t.MaxAnswerWords
}

// AppendUser records a user turn.
func (t *Tracker) AppendUser(profile *domain.UserProfile, text string) {
	t.append(profile, domain.ConversationTurn{
		Role:      domain.RoleUser,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// AppendAssistant records an assistant turn.
func (t *Tracker) AppendAssistant(profile *domain.UserProfile, text string, result *domain.CandidateOperation, clarification bool) {
	t.append(profile, domain.ConversationTurn{
		Role:          domain.RoleAssistant,
		Text:          text,
		Timestamp:     time.Now().UTC(),
		Result:        result,
		Clarification: clarification,
	})
}

func (t *Tracker) append(profile *domain.UserProfile, turn domain.ConversationTurn) {
	profile.History = append(profile.History, turn)
	if over := len(profile.History) - t.HistoryCap; t.HistoryCap > 0 && over > 0 {
		profile.History = append([]domain.ConversationTurn(nil), profile.History[over:]...)
	}
}

// Clear drops the conversation history.
func (t *Tracker) Clear(profile *domain.UserProfile) {
	profile.History = nil
}

// Context renders the history as prompt context. Empty history yields "".
func Context(history []domain.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("### Recent conversation ###\n")
	for _, turn := range history {
		role := "Assistant"
		if turn.Role == domain.RoleUser {
			role = "User"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
