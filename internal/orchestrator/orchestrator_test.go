package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/onboarding"
	"github.com/dvloznov/finance-chat/internal/store"
)

type mockInterpreter struct {
	InterpretFunc func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch
	calls         int
}

func (m *mockInterpreter) Interpret(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
	m.calls++
	if m.InterpretFunc == nil {
		return domain.CandidateBatch{}
	}
	return m.InterpretFunc(ctx, message, profile)
}

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, message string, profile *domain.UserProfile, state domain.OnboardingState) (onboarding.Extraction, error)
}

func (m *mockExtractor) Extract(ctx context.Context, message string, profile *domain.UserProfile, state domain.OnboardingState) (onboarding.Extraction, error) {
	if m.ExtractFunc == nil {
		return onboarding.Extraction{}, errors.New("unexpected extraction")
	}
	return m.ExtractFunc(ctx, message, profile, state)
}

type recordingDispatcher struct {
	entries []domain.LedgerEntry
	replies []domain.ChatResponse
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, entry domain.LedgerEntry) {
	r.entries = append(r.entries, entry)
}

func (r *recordingDispatcher) Deliver(ctx context.Context, reply domain.ChatResponse) {
	r.replies = append(r.replies, reply)
}

// failingStore wraps a memory store and fails Save/Delete on demand.
type failingStore struct {
	*store.MemoryStore
	saveErr error
	saves   int
}

func (f *failingStore) Save(ctx context.Context, p *domain.UserProfile) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.Save(ctx, p)
}

type fixture struct {
	store   *failingStore
	interp  *mockInterpreter
	extract *mockExtractor
	out     *recordingDispatcher
	orch    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   &failingStore{MemoryStore: store.NewMemory()},
		interp:  &mockInterpreter{},
		extract: &mockExtractor{},
		out:     &recordingDispatcher{},
	}
	f.orch = New(f.store, f.interp, f.extract, f.out, f.out, DefaultOptions())
	return f
}

func (f *fixture) seed(t *testing.T, p *domain.UserProfile) {
	t.Helper()
	require.NoError(t, f.store.MemoryStore.Save(context.Background(), p))
}

func (f *fixture) load(t *testing.T, id string) *domain.UserProfile {
	t.Helper()
	p, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) send(t *testing.T, message string) domain.ChatResponse {
	t.Helper()
	resp, err := f.orch.Process(context.Background(), domain.ChatRequest{ChatID: "chat-1", UserID: "u1", UserName: "Anna", Message: message})
	require.NoError(t, err)
	return resp
}

func readyProfile(id string) *domain.UserProfile {
	p := domain.NewProfile(id)
	p.DisplayName = "ANNA"
	p.Accounts = []string{"CARD", "CASH"}
	p.Funds = []string{"FOOD", "TRANSPORT"}
	p.DefaultCurrency = "RSD"
	p.OnboardingState = domain.OnboardingCompleted
	return p
}

func expense(amount, account, comment string) domain.CandidateOperation {
	op := domain.CandidateOperation{
		Kind:       domain.KindExpense,
		Currency:   "RSD",
		Account:    account,
		Fund:       "FOOD",
		Comment:    comment,
		Understood: true,
	}
	if amount != "" {
		op.Amount = domain.Amount(amount)
	}
	return op
}

func TestProcess_CommitsOperation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{Understood: true, Operations: []domain.CandidateOperation{expense("300", "CARD", "coffee")}}
	}

	resp := f.send(t, "coffee 300 card")

	assert.True(t, resp.Success)
	assert.Equal(t, "chat-1", resp.ChatID)
	assert.Equal(t, "✅ Recorded expense: 300.00 RSD to FOOD (CARD)", resp.Message)
	assert.Equal(t, 1, resp.OperationsCount)

	require.Len(t, f.out.entries, 1)
	entry := f.out.entries[0]
	assert.Equal(t, "u1", entry.UserID)
	assert.Equal(t, "ANNA", entry.Actor)
	assert.NotEmpty(t, entry.EntryID)
	assert.False(t, entry.Compensating)

	require.Len(t, f.out.replies, 1)
	assert.Equal(t, resp.Message, f.out.replies[0].Message)

	saved := f.load(t, "u1")
	require.Len(t, saved.Operations, 1)
	assert.Empty(t, saved.History, "history is cleared after a commit")
	assert.Empty(t, saved.PendingCommands)
	assert.Equal(t, 1, f.store.saves)
}

func TestProcess_CorrectionDispatchesCompensationFirst(t *testing.T) {
	f := newFixture(t)
	p := readyProfile("u1")
	p.Operations = []domain.CandidateOperation{expense("1000", "CARD", "groceries")}
	f.seed(t, p)

	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{
			Understood: true,
			Correction: true,
			Operations: []domain.CandidateOperation{expense("500", "CARD", "groceries")},
		}
	}

	resp := f.send(t, "no, 500")

	assert.True(t, resp.Success)
	assert.Equal(t, "✏️ Corrected: 1000 → 500 RSD", resp.Message)

	require.Len(t, f.out.entries, 2)
	cancel := f.out.entries[0]
	assert.True(t, cancel.Compensating)
	assert.Equal(t, "-1000", cancel.Operation.AmountOrZero().String())
	assert.True(t, strings.HasPrefix(cancel.Operation.Comment, "CANCEL:"))
	assert.Equal(t, "500", f.out.entries[1].Operation.AmountOrZero().String())

	saved := f.load(t, "u1")
	require.Len(t, saved.Operations, 1)
	assert.Equal(t, "500", saved.Operations[0].AmountOrZero().String())
}

func TestProcess_CorrectionWithEmptyLedger(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{Understood: true, Correction: true, Operations: []domain.CandidateOperation{expense("500", "CARD", "lunch")}}
	}

	resp := f.send(t, "actually 500")

	assert.Equal(t, "✏️ Corrected: 500 RSD — lunch", resp.Message)
	require.Len(t, f.out.entries, 1)
	assert.False(t, f.out.entries[0].Compensating)
}

func TestProcess_PersistenceFailureDispatchesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.store.saveErr = errors.New("disk full")
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{Understood: true, Operations: []domain.CandidateOperation{expense("300", "CARD", "coffee")}}
	}

	_, err := f.orch.Process(context.Background(), domain.ChatRequest{ChatID: "chat-1", UserID: "u1", Message: "coffee 300"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, f.out.entries)
	assert.Empty(t, f.out.replies)
}

func TestProcess_InvalidRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Process(context.Background(), domain.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, f.interp.calls)
}

func TestProcess_ClarificationKeepsPending(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{
			Understood:    false,
			Clarification: "How much was it?",
			Operations:    []domain.CandidateOperation{expense("", "CARD", "taxi")},
		}
	}

	resp := f.send(t, "taxi on card")

	assert.False(t, resp.Success)
	assert.Equal(t, "How much was it?", resp.Message)
	assert.Zero(t, resp.OperationsCount)
	assert.Empty(t, f.out.entries)

	saved := f.load(t, "u1")
	require.Len(t, saved.PendingCommands, 1)
	assert.Equal(t, "CARD", saved.PendingCommands[0].Account)
	assert.True(t, saved.AwaitingClarification())
	assert.Len(t, saved.History, 2)
}

func TestProcess_AnswerMergesWithPending(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))

	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{
			Understood:    false,
			Clarification: "How much?",
			Operations:    []domain.CandidateOperation{expense("", "CARD", "taxi")},
		}
	}
	f.send(t, "taxi on card")

	var seenPending int
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		seenPending = len(profile.PendingCommands)
		return domain.CandidateBatch{
			Understood: true,
			Operations: []domain.CandidateOperation{{Kind: domain.KindExpense, Amount: domain.Amount("150"), Understood: true}},
		}
	}
	resp := f.send(t, "150")

	assert.Equal(t, 1, seenPending, "a short answer keeps the pending set")
	assert.True(t, resp.Success)
	require.Len(t, f.out.entries, 1)
	op := f.out.entries[0].Operation
	assert.Equal(t, "150", op.AmountOrZero().String())
	assert.Equal(t, "CARD", op.Account)
	assert.Equal(t, "taxi", op.Comment)

	assert.Empty(t, f.load(t, "u1").PendingCommands)
}

func TestProcess_NewConversationDropsPending(t *testing.T) {
	f := newFixture(t)
	p := readyProfile("u1")
	p.PendingCommands = []domain.CandidateOperation{expense("", "CARD", "taxi")}
	f.seed(t, p)

	var seenPending int
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		seenPending = len(profile.PendingCommands)
		return domain.CandidateBatch{Understood: true, Operations: []domain.CandidateOperation{expense("90", "CASH", "bread")}}
	}

	f.send(t, "bread 90 cash")

	assert.Zero(t, seenPending)
	require.Len(t, f.out.entries, 1)
	assert.Equal(t, "CASH", f.out.entries[0].Operation.Account)
}

func TestProcess_FallbackReply(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{Understood: false}
	}

	resp := f.send(t, "hmm")

	assert.Equal(t, FallbackReply, resp.Message)
	assert.False(t, resp.Success)
}

func TestProcess_ErrorTextWhenNoClarification(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{Understood: false, Error: "Unknown account"}
	}

	assert.Equal(t, "Unknown account", f.send(t, "300 on gold card").Message)
}

func TestProcess_UnknownKindIsNotCommitted(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		op := expense("10", "CARD", "x")
		op.Kind = domain.KindUnknown
		return domain.CandidateBatch{Understood: true, Clarification: "Income or expense?", Operations: []domain.CandidateOperation{op}}
	}

	resp := f.send(t, "10 card")

	assert.False(t, resp.Success)
	assert.Equal(t, "Income or expense?", resp.Message)
	assert.Empty(t, f.out.entries)
}

func TestProcess_MultipleOperations(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		income := domain.CandidateOperation{Kind: domain.KindIncome, Amount: domain.Amount("5000"), Currency: "EUR", Account: "CARD", Understood: true}
		return domain.CandidateBatch{Understood: true, Operations: []domain.CandidateOperation{expense("300", "CARD", "coffee"), income}}
	}

	resp := f.send(t, "coffee 300 and salary 5000 eur")

	assert.Equal(t, "✅ Recorded 2 operations:\n1. 300 RSD — coffee\n2. +5000 EUR — income", resp.Message)
	assert.Equal(t, 2, resp.OperationsCount)
	assert.Len(t, f.out.entries, 2)
	assert.Len(t, f.load(t, "u1").Operations, 2)
}

func TestProcess_SuggestionAndDefaults(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{
			Understood:           true,
			Operations:           []domain.CandidateOperation{expense("300", "CASH", "coffee")},
			SuggestedInstruction: "coffee goes to FOOD",
			SetAsDefault:         &domain.SetAsDefault{Account: "cash"},
		}
	}

	resp := f.send(t, "coffee 300 cash, make cash default")

	assert.Equal(t, "✅ Recorded expense: 300.00 RSD to FOOD (CASH)"+
		"\n\n💡 Remember: \"coffee goes to FOOD\"? (yes/no)"+
		"\n\n📌 Default account: CASH", resp.Message)

	saved := f.load(t, "u1")
	assert.Equal(t, "coffee goes to FOOD", saved.PendingSuggestion)
	assert.Equal(t, "CASH", saved.DefaultAccount)
}

func TestProcess_Learning(t *testing.T) {
	tests := []struct {
		name            string
		message         string
		wantReply       string
		wantInstruction bool
		wantInterpret   bool
	}{
		{"affirmative", "да", "✅ Remembered: \"coffee goes to FOOD\"", true, false},
		{"affirmative english", "OK", "✅ Remembered: \"coffee goes to FOOD\"", true, false},
		{"negative", "no", LearningDeclinedReply, false, false},
		{"negative phrase", "не надо", LearningDeclinedReply, false, false},
		{"anything else", "taxi 300", "?", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := readyProfile("u1")
			p.PendingSuggestion = "coffee goes to FOOD"
			f.seed(t, p)

			resp := f.send(t, tt.message)

			assert.Equal(t, tt.wantReply, resp.Message)
			assert.Equal(t, tt.wantInterpret, f.interp.calls > 0)

			saved := f.load(t, "u1")
			assert.Empty(t, saved.PendingSuggestion)
			if tt.wantInstruction {
				assert.Equal(t, []string{"coffee goes to FOOD"}, saved.Instructions)
			} else {
				assert.Empty(t, saved.Instructions)
			}
			assert.Equal(t, 1, f.store.saves)
		})
	}
}

func TestProcess_AdminCommands(t *testing.T) {
	t.Run("debug toggles", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, readyProfile("u1"))

		assert.Equal(t, DebugOnReply, f.send(t, "/debug on").Message)
		assert.True(t, f.load(t, "u1").Debug)

		assert.Equal(t, "🔧 Debug mode: ON\nUse: /debug on or /debug off", f.send(t, "/debug").Message)

		assert.Equal(t, DebugOffReply, f.send(t, "/DEBUG false").Message)
		assert.False(t, f.load(t, "u1").Debug)
		assert.Zero(t, f.interp.calls)
	})

	t.Run("reset deletes the profile", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, readyProfile("u1"))

		assert.Equal(t, ResetReply, f.send(t, "/reset").Message)
		assert.Zero(t, f.store.Len())
		assert.Zero(t, f.store.saves)
	})

	t.Run("help", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, AdminHelp, f.send(t, "/info").Message)
	})

	t.Run("notes", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, NoteReply, f.send(t, "/note the bot misread my rent").Message)
		assert.Equal(t, NoteReply, f.send(t, "PS: also taxes").Message)
		assert.Zero(t, f.interp.calls)
	})

	t.Run("unknown slash command falls through", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, readyProfile("u1"))
		f.send(t, "/start")
		assert.Equal(t, 1, f.interp.calls)
	})

	t.Run("admin runs before onboarding", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, DebugOnReply, f.send(t, "/debug on").Message)
		assert.True(t, f.load(t, "u1").Debug)
	})
}

func TestProcess_OnboardingPreemptsInterpreter(t *testing.T) {
	f := newFixture(t)
	f.extract.ExtractFunc = func(ctx context.Context, message string, profile *domain.UserProfile, state domain.OnboardingState) (onboarding.Extraction, error) {
		assert.Equal(t, domain.OnboardingAskAccounts, state)
		return onboarding.Extraction{
			ResponseMessage: "Great! Now tell me your spending categories.",
			StepComplete:    true,
			Accounts:        []string{"card", "cash"},
		}, nil
	}

	resp := f.send(t, "I have a card and cash")

	assert.Equal(t, "Great! Now tell me your spending categories.", resp.Message)
	assert.Zero(t, f.interp.calls)
	assert.Empty(t, f.out.entries)

	saved := f.load(t, "u1")
	assert.Equal(t, []string{"CARD", "CASH"}, saved.Accounts)
	assert.Equal(t, domain.OnboardingAskFunds, saved.OnboardingState)
}

func TestProcess_MetaUndo(t *testing.T) {
	f := newFixture(t)
	p := readyProfile("u1")
	p.Operations = []domain.CandidateOperation{expense("300", "CARD", "coffee")}
	f.seed(t, p)
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{Meta: &domain.MetaCommand{Type: "UNDO"}}
	}

	resp := f.send(t, "undo that")

	assert.True(t, resp.Success)
	assert.Equal(t, "Undo: 300 RSD — coffee", resp.Message)
	require.Len(t, f.out.entries, 1)
	assert.True(t, f.out.entries[0].Undo)
	assert.Equal(t, "-300", f.out.entries[0].Operation.AmountOrZero().String())
	assert.Empty(t, f.load(t, "u1").Operations)
}

func TestProcess_MetaSettingsChange(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{
			Clarification: "Added a savings account.",
			Meta:          &domain.MetaCommand{Type: "add_account", Value: "savings box"},
		}
	}

	resp := f.send(t, "add account savings box")

	assert.Equal(t, "Added a savings account.", resp.Message)
	assert.Contains(t, f.load(t, "u1").Accounts, "SAVINGS_BOX")
	assert.Empty(t, f.out.entries)
}

func TestProcess_UnknownMetaFallsThroughToFinalize(t *testing.T) {
	f := newFixture(t)
	f.seed(t, readyProfile("u1"))
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{
			Understood: true,
			Operations: []domain.CandidateOperation{expense("50", "CASH", "gum")},
			Meta:       &domain.MetaCommand{Type: "DANCE"},
		}
	}

	resp := f.send(t, "gum 50")

	assert.True(t, resp.Success)
	assert.Len(t, f.out.entries, 1)
}

func TestProcess_DebugBlock(t *testing.T) {
	f := newFixture(t)
	p := readyProfile("u1")
	p.Debug = true
	f.seed(t, p)
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		return domain.CandidateBatch{
			Understood: true,
			Operations: []domain.CandidateOperation{expense("300", "CARD", "coffee")},
			Usage:      &domain.TokenUsage{Model: "gemini-2.5-flash", PromptTokens: 120, CompletionTokens: 30},
		}
	}

	resp := f.send(t, "coffee 300")

	assert.Contains(t, resp.Message, "🔧 DEBUG:")
	assert.Contains(t, resp.Message, "tokens: gemini-2.5-flash prompt=120 completion=30")
	assert.Contains(t, resp.Message, "  1. EXPENSES 300 RSD → CARD / FOOD")
	assert.Contains(t, resp.Message, "historySize: 0")
	assert.Empty(t, f.load(t, "u1").History)
}

func TestProcess_LoadsLinkedProfiles(t *testing.T) {
	f := newFixture(t)
	p := readyProfile("u1")
	p.LinkedUsers = []string{"IVAN (u2)", "u1", "ghost"}
	f.seed(t, p)
	partner := readyProfile("u2")
	partner.DisplayName = "IVAN"
	partner.Accounts = []string{"IVAN_CARD"}
	f.seed(t, partner)

	var linked []domain.LinkedProfile
	f.interp.InterpretFunc = func(ctx context.Context, message string, profile *domain.UserProfile) domain.CandidateBatch {
		linked = profile.Linked
		return domain.CandidateBatch{Understood: false, Clarification: "Whose card?"}
	}

	f.send(t, "transfer 100 to Ivan")

	require.Len(t, linked, 1)
	assert.Equal(t, "u2", linked[0].UserID)
	assert.Equal(t, []string{"IVAN_CARD"}, linked[0].Accounts)
}
