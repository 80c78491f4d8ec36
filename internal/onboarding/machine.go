// Package onboarding drives new users through the minimum setup required
// before financial operations are accepted.
package onboarding

import (
	"context"
	"strings"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/logger"
)

// SkippedReply is returned when the user skips the whole setup.
const SkippedReply = "OK! Setup skipped. Default accounts: CARD, CASH. Default category: GENERAL. " +
	"You can now record expenses! Example: 'coffee 500 RUB'"

// RetryReply is returned when extraction fails; the step does not advance.
const RetryReply = "Sorry, something went wrong. Please try again."

// SkipAllHint is the phrase users are told to send to finish setup with defaults.
const SkipAllHint = "skip all"

var skipAllPhrases = []string{
	SkipAllHint,
	"skip everything",
	"skip setup",
	"пропустить всё",
	"пропустить все",
	"пропустить настройку",
}

// Extraction is what the extractor found in a single onboarding message.
type Extraction struct {
	ResponseMessage  string   `json:"responseMessage"`
	// StepComplete is the extractor's own claim. It is logged, never used
	// to advance the state.
	StepComplete     bool     `json:"stepComplete"`
	Name             string   `json:"extractedName"`
	Currency         string   `json:"extractedCurrency"`
	Accounts         []string `json:"extractedAccounts"`
	Funds            []string `json:"extractedFunds"`
	Partner          string   `json:"extractedPartner"`
	DetectedLanguage string   `json:"detectedLanguage"`
}

// Extractor pulls step-specific values out of a user message and drafts a reply.
type Extractor interface {
	Extract(ctx context.Context, message string, profile *domain.UserProfile, state domain.OnboardingState) (Extraction, error)
}

// StepResult describes the outcome of one onboarding message.
type StepResult struct {
	Reply         string
	DataExtracted bool
	StepComplete  bool
	From          domain.OnboardingState
	To            domain.OnboardingState
	Skipped       bool
}

// Machine runs onboarding steps against an Extractor.
type Machine struct {
	extractor Extractor
}

// NewMachine creates a Machine.
func NewMachine(extractor Extractor) *Machine {
	return &Machine{extractor: extractor}
}

// NeedsOnboarding reports whether the profile must go through setup before
// financial operations. A profile without at least one account and one fund
// always needs it, whatever its recorded state.
func NeedsOnboarding(profile *domain.UserProfile) bool {
	if profile == nil || !profile.HasMinimumSetup() {
		return true
	}
	switch profile.OnboardingState {
	case domain.OnboardingCompleted, domain.OnboardingNotStarted, "":
		return false
	}
	return profile.OnboardingState.Valid()
}

// ResolveState maps the persisted state to the step to run now.
func ResolveState(profile *domain.UserProfile) domain.OnboardingState {
	state := profile.OnboardingState
	switch {
	case state == "" || state == domain.OnboardingNotStarted || !state.Valid():
		return domain.OnboardingAskAccounts
	case state == domain.OnboardingCompleted && !profile.HasMinimumSetup():
		if len(profile.Accounts) > 0 {
			return domain.OnboardingAskFunds
		}
		return domain.OnboardingAskAccounts
	}
	return state
}

// NextState returns the step that follows current.
func NextState(current domain.OnboardingState) domain.OnboardingState {
	switch current {
	case domain.OnboardingAskName:
		return domain.OnboardingAskAccounts
	case domain.OnboardingAskAccounts:
		return domain.OnboardingAskFunds
	case domain.OnboardingAskFunds:
		return domain.OnboardingCompleted
	case domain.OnboardingAskCurrency:
		return domain.OnboardingAskName
	case domain.OnboardingAskLinked, domain.OnboardingCompleted:
		return domain.OnboardingCompleted
	default:
		return domain.OnboardingAskAccounts
	}
}

// HasRequiredData reports whether the profile now holds what state asks for.
func HasRequiredData(profile *domain.UserProfile, state domain.OnboardingState) bool {
	switch state {
	case domain.OnboardingAskAccounts:
		return len(profile.Accounts) > 0
	case domain.OnboardingAskFunds:
		return len(profile.Funds) > 0
	case domain.OnboardingAskName:
		return profile.DisplayName != ""
	case domain.OnboardingAskCurrency:
		return profile.DefaultCurrency != ""
	default:
		return true
	}
}

// IsSkipAll reports whether message asks to skip the whole setup.
func IsSkipAll(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, phrase := range skipAllPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// SkipAll seeds the minimum setup and completes onboarding.
func SkipAll(profile *domain.UserProfile) {
	if len(profile.Accounts) == 0 {
		profile.Accounts = []string{"CARD", "CASH"}
	}
	if len(profile.Funds) == 0 {
		profile.Funds = []string{"GENERAL"}
	}
	profile.OnboardingState = domain.OnboardingCompleted
}

// HandleStep processes one onboarding message and mutates the profile.
// Advancement is decided from the profile contents, never from the
// extractor's own stepComplete claim. The caller persists the profile.
func (m *Machine) HandleStep(ctx context.Context, message string, profile *domain.UserProfile) StepResult {
	log := logger.FromContext(ctx)

	if IsSkipAll(message) {
		from := profile.OnboardingState
		SkipAll(profile)
		log.Info().Str("user_id", profile.UserID).Msg("onboarding skipped")
		return StepResult{
			Reply:        SkippedReply,
			StepComplete: true,
			From:         from,
			To:           domain.OnboardingCompleted,
			Skipped:      true,
		}
	}

	state := ResolveState(profile)

	ext, err := m.extractor.Extract(ctx, message, profile, state)
	if err != nil {
		log.Error().Err(err).Str("state", string(state)).Msg("onboarding extraction failed")
		return StepResult{Reply: RetryReply, From: state, To: profile.OnboardingState}
	}

	profile.OnboardingState = state
	extracted := apply(profile, ext, state)
	log.Debug().
		Str("state", string(state)).
		Bool("data_extracted", extracted).
		Bool("claimed_complete", ext.StepComplete).
		Msg("onboarding extraction applied")

	result := StepResult{
		Reply:         ext.ResponseMessage,
		DataExtracted: extracted,
		From:          state,
		To:            state,
	}
	if HasRequiredData(profile, state) {
		result.StepComplete = true
		result.To = NextState(state)
		profile.OnboardingState = result.To
		log.Info().Str("from", string(state)).Str("to", string(result.To)).Msg("onboarding advanced")
	}
	if result.Reply == "" {
		result.Reply = RetryReply
	}
	return result
}

// apply merges extracted values for the current step into the profile.
func apply(profile *domain.UserProfile, ext Extraction, state domain.OnboardingState) bool {
	if lang := strings.TrimSpace(ext.DetectedLanguage); lang != "" {
		profile.PreferredLanguage = lang
	}

	extracted := false
	switch state {
	case domain.OnboardingAskName:
		if name := strings.TrimSpace(ext.Name); name != "" {
			profile.DisplayName = name
			extracted = true
		}
	case domain.OnboardingAskCurrency:
		if cur := domain.NormalizeCode(ext.Currency); cur != "" {
			profile.DefaultCurrency = cur
			extracted = true
		}
	case domain.OnboardingAskAccounts:
		for _, a := range ext.Accounts {
			if profile.AddAccount(domain.NormalizeName(a)) {
				extracted = true
			}
		}
	case domain.OnboardingAskFunds:
		for _, f := range ext.Funds {
			if profile.AddFund(domain.NormalizeName(f)) {
				extracted = true
			}
		}
	case domain.OnboardingAskLinked:
		if partner := strings.TrimSpace(ext.Partner); partner != "" {
			profile.LinkedUsers = []string{partner}
			extracted = true
		}
	}
	return extracted
}
