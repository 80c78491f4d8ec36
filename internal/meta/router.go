// Package meta routes non-financial intents detected by the interpreter.
package meta

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/ledger"
	"github.com/dvloznov/finance-chat/internal/logger"
)

// Supported meta-command types.
const (
	ShowSettings       = "SHOW_SETTINGS"
	AddAccount         = "ADD_ACCOUNT"
	AddFund            = "ADD_FUND"
	AddInstruction     = "ADD_INSTRUCTION"
	RemoveInstruction  = "REMOVE_INSTRUCTION"
	SetDefaultCurrency = "SET_DEFAULT_CURRENCY"
	SetDefaultAccount  = "SET_DEFAULT_ACCOUNT"
	SetDefaultFund     = "SET_DEFAULT_FUND"
	ClearInstructions  = "CLEAR_INSTRUCTIONS"
	Undo               = "UNDO"
	Help               = "HELP"
)

// Outcome is the result of routing a meta-command. Handled is false when
// the type is not recognised and the caller should continue as if no
// meta-command were present.
type Outcome struct {
	Reply   string
	Handled bool
	Success bool
	// Entries are dispatched by the caller once the profile is saved.
	Entries []domain.LedgerEntry
}

// Router applies meta-commands to a profile.
type Router struct {
	operationCap int
}

// NewRouter creates a Router. operationCap bounds the operation ledger used by UNDO.
func NewRouter(operationCap int) *Router {
	return &Router{operationCap: operationCap}
}

// Route applies cmd to profile. aiMessage is the interpreter's drafted reply
// and may be empty.
func (r *Router) Route(ctx context.Context, cmd domain.MetaCommand, aiMessage string, profile *domain.UserProfile) Outcome {
	log := logger.FromContext(ctx).With().
		Str("meta_type", cmd.Type).
		Str("meta_value", cmd.Value).
		Logger()

	value := strings.TrimSpace(cmd.Value)
	typ := strings.ToUpper(strings.TrimSpace(cmd.Type))

	log.Info().Msg("routing meta command")

	switch typ {
	case ShowSettings:
		summary := Summary(profile)
		if aiMessage == "" {
			return handled(summary)
		}
		return handled(aiMessage + "\n\n" + summary)

	case AddAccount:
		name := domain.NormalizeName(value)
		if name == "" {
			log.Warn().Msg("ADD_ACCOUNT without value")
			return rejected(MissingAccountReply)
		}
		profile.AddAccount(name)
		return handled(orDefault(aiMessage, "✅ Account added: "+name))

	case AddFund:
		name := domain.NormalizeName(value)
		if name == "" {
			log.Warn().Msg("ADD_FUND without value")
			return rejected(MissingFundReply)
		}
		profile.AddFund(name)
		return handled(orDefault(aiMessage, "✅ Fund added: "+name))

	case AddInstruction:
		if value == "" {
			log.Warn().Msg("ADD_INSTRUCTION without value")
			return rejected(MissingInstructionReply)
		}
		reply := orDefault(aiMessage, fmt.Sprintf("✅ Remembered: %q", value))
		if !profile.AddInstruction(value) {
			log.Info().Msg("instruction already known")
			return handled(reply + " (already known)")
		}
		return handled(reply)

	case RemoveInstruction:
		index, err := strconv.Atoi(value)
		if err != nil {
			log.Warn().Err(err).Msg("REMOVE_INSTRUCTION: invalid index")
			return rejected(InstructionNotFoundReply)
		}
		removed, ok := profile.RemoveInstruction(index)
		if !ok {
			log.Warn().Int("index", index).Int("count", len(profile.Instructions)).
				Msg("REMOVE_INSTRUCTION: index out of range")
			return rejected(InstructionNotFoundReply)
		}
		log.Info().Int("index", index).Str("removed", removed).Msg("instruction removed")
		return handled(orDefault(aiMessage, "🗑 Instruction removed"))

	case SetDefaultCurrency:
		if value != "" {
			profile.DefaultCurrency = domain.NormalizeCode(value)
		}
		return handled(orDefault(aiMessage, "📌 Default currency: "+profile.DefaultCurrency))

	case SetDefaultAccount:
		if value != "" {
			profile.DefaultAccount = domain.NormalizeCode(value)
		}
		return handled(orDefault(aiMessage, "📌 Default account: "+profile.DefaultAccount))

	case SetDefaultFund:
		if value != "" {
			profile.DefaultFund = domain.NormalizeCode(value)
		}
		return handled(orDefault(aiMessage, "📌 Default fund: "+profile.DefaultFund))

	case ClearInstructions:
		profile.ClearInstructions()
		return handled(orDefault(aiMessage, "🧹 Instructions cleared"))

	case Undo:
		return r.undo(ctx, aiMessage, profile)

	case Help:
		return handled(orDefault(aiMessage, HelpText))

	default:
		log.Warn().Msg("unknown meta command type")
		return Outcome{}
	}
}

func (r *Router) undo(ctx context.Context, aiMessage string, profile *domain.UserProfile) Outcome {
	l := ledger.New(profile, r.operationCap)

	last, ok := l.PopLast()
	if !ok {
		return Outcome{
			Reply:   orDefault(aiMessage, "No operations to undo"),
			Handled: true,
		}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("comment", last.Comment).
		Str("amount", last.AmountOrZero().String()).
		Msg("undoing operation")

	entry := ledger.CompensatingEntry(profile, last)
	entry.Undo = true

	return Outcome{
		Reply:   orDefault(aiMessage, "Undo: "+DescribeUndo(last)),
		Handled: true,
		Success: true,
		Entries: []domain.LedgerEntry{entry},
	}
}

// DescribeUndo renders "<amount> <currency> — <comment>".
func DescribeUndo(op domain.CandidateOperation) string {
	return fmt.Sprintf("%s %s — %s", op.AmountOrZero().StringFixed(0), op.Currency, op.Comment)
}

// Corrective replies for meta-commands whose value cannot be applied. They
// replace the interpreter's draft, which assumes the change succeeded.
const (
	MissingAccountReply      = "⚠️ Which account should I add? Send its name."
	MissingFundReply         = "⚠️ Which fund should I add? Send its name."
	MissingInstructionReply  = "⚠️ What should I remember? Send the rule itself."
	InstructionNotFoundReply = "⚠️ No such instruction, nothing removed. Ask to show settings to see the list."
)

// HelpText is the fallback reply for HELP when the interpreter drafted none.
const HelpText = "Send expenses like 'coffee 300 RSD card'. " +
	"Ask to show settings, add an account or fund, change defaults, or undo the last operation."

func handled(reply string) Outcome {
	return Outcome{Reply: reply, Handled: true, Success: true}
}

// rejected leaves the profile unchanged and answers with a corrective reply.
func rejected(reply string) Outcome {
	return Outcome{Reply: reply, Handled: true}
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
