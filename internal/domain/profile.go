package domain

import (
	"slices"
	"time"
)

// OnboardingState is the setup step a profile is currently on.
type OnboardingState string

const (
	OnboardingNotStarted  OnboardingState = "NOT_STARTED"
	OnboardingAskAccounts OnboardingState = "ASK_ACCOUNTS"
	OnboardingAskFunds    OnboardingState = "ASK_FUNDS"
	OnboardingAskCurrency OnboardingState = "ASK_CURRENCY"
	OnboardingAskName     OnboardingState = "ASK_NAME"
	OnboardingAskLinked   OnboardingState = "ASK_LINKED"
	OnboardingCompleted   OnboardingState = "COMPLETED"
)

// Valid reports whether s is one of the known states.
func (s OnboardingState) Valid() bool {
	switch s {
	case OnboardingNotStarted, OnboardingAskAccounts, OnboardingAskFunds, OnboardingAskCurrency,
		OnboardingAskName, OnboardingAskLinked, OnboardingCompleted:
		return true
	}
	return false
}

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message in the per-user conversation history.
type ConversationTurn struct {
	Role          Role                `json:"role"`
	Text          string              `json:"text"`
	Timestamp     time.Time           `json:"timestamp"`
	Result        *CandidateOperation `json:"result,omitempty"`
	Clarification bool                `json:"clarification"`
}

// UserProfile is the persisted state of one end user.
//
// List fields distinguish nil (never set) from an empty slice (explicitly
// emptied). Both read as empty for consumers; stores must round-trip the
// difference.
type UserProfile struct {
	UserID            string `json:"user_id"`
	DisplayName       string `json:"display_name,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`

	DefaultAccount  string `json:"default_account,omitempty"`
	DefaultCurrency string `json:"default_currency,omitempty"`
	DefaultFund     string `json:"default_fund,omitempty"`

	Accounts     []string `json:"accounts"`
	Funds        []string `json:"funds"`
	LinkedUsers  []string `json:"linked_users"`
	Instructions []string `json:"instructions"`

	History           []ConversationTurn   `json:"history"`
	PendingCommands   []CandidateOperation `json:"pending_commands"`
	PendingSuggestion string               `json:"pending_suggestion,omitempty"`
	Operations        []CandidateOperation `json:"operations"`

	OnboardingState OnboardingState `json:"onboarding_state,omitempty"`
	Debug           bool            `json:"debug"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Linked holds read-only snapshots of linked users for the current
	// invocation. Never persisted.
	Linked []LinkedProfile `json:"-"`
}

// LinkedProfile is a read-only view of a linked user's settings.
type LinkedProfile struct {
	UserID          string
	DisplayName     string
	DefaultAccount  string
	DefaultCurrency string
	DefaultFund     string
	Accounts        []string
	Funds           []string
}

// NewProfile returns an empty profile for userID.
func NewProfile(userID string) *UserProfile {
	now := time.Now().UTC()
	return &UserProfile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ActorName is the name recorded on dispatched operations.
func (p *UserProfile) ActorName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.UserID
}

// HasMinimumSetup reports whether the profile has at least one account and one fund.
func (p *UserProfile) HasMinimumSetup() bool {
	return len(p.Accounts) > 0 && len(p.Funds) > 0
}

// AwaitingClarification reports whether the most recent assistant turn asked a question.
func (p *UserProfile) AwaitingClarification() bool {
	for i := len(p.History) - 1; i >= 0; i-- {
		if p.History[i].Role == RoleAssistant {
			return p.History[i].Clarification
		}
	}
	return false
}

// AddAccount appends an account unless it is already known.
func (p *UserProfile) AddAccount(name string) bool {
	if name == "" || slices.Contains(p.Accounts, name) {
		return false
	}
	p.Accounts = append(p.Accounts, name)
	return true
}

// AddFund appends a fund unless it is already known.
func (p *UserProfile) AddFund(name string) bool {
	if name == "" || slices.Contains(p.Funds, name) {
		return false
	}
	p.Funds = append(p.Funds, name)
	return true
}

// AddInstruction appends an instruction unless an identical one exists.
func (p *UserProfile) AddInstruction(text string) bool {
	if text == "" || slices.Contains(p.Instructions, text) {
		return false
	}
	p.Instructions = append(p.Instructions, text)
	return true
}

// RemoveInstruction deletes the instruction at index and returns it.
func (p *UserProfile) RemoveInstruction(index int) (string, bool) {
	if index < 0 || index >= len(p.Instructions) {
		return "", false
	}
	removed := p.Instructions[index]
	p.Instructions = slices.Delete(slices.Clone(p.Instructions), index, index+1)
	return removed, true
}

// ClearInstructions leaves an explicitly empty instruction list.
func (p *UserProfile) ClearInstructions() {
	p.Instructions = []string{}
}

// WithEmptyLists returns a copy in which every unset list is empty, for
// consumers outside the store.
func (p UserProfile) WithEmptyLists() *UserProfile {
	p.Accounts = orEmpty(p.Accounts)
	p.Funds = orEmpty(p.Funds)
	p.LinkedUsers = orEmpty(p.LinkedUsers)
	p.Instructions = orEmpty(p.Instructions)
	p.History = orEmpty(p.History)
	p.PendingCommands = orEmpty(p.PendingCommands)
	p.Operations = orEmpty(p.Operations)
	return &p
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ClearConversation drops history and pending commands.
func (p *UserProfile) ClearConversation() {
	p.History = nil
	p.PendingCommands = nil
}
