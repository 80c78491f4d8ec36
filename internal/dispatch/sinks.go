package dispatch

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// LogSink writes entries and replies to the structured log. It backs the
// "log" ledger sink and dry-run mode.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// WriteEntry logs the entry.
func (s *LogSink) WriteEntry(ctx context.Context, entry domain.LedgerEntry) error {
	op := entry.Operation
	s.logger.Info().
		Str("entry_id", entry.EntryID).
		Str("user_id", entry.UserID).
		Str("actor", entry.Actor).
		Str("kind", string(op.Kind)).
		Str("amount", op.AmountOrZero().String()).
		Str("currency", op.Currency).
		Str("account", op.Account).
		Str("fund", op.Fund).
		Str("comment", op.Comment).
		Bool("compensating", entry.Compensating).
		Bool("undo", entry.Undo).
		Msg("ledger entry")
	return nil
}

// Send logs the reply.
func (s *LogSink) Send(ctx context.Context, reply domain.ChatResponse) error {
	s.logger.Info().
		Str("chat_id", reply.ChatID).
		Bool("success", reply.Success).
		Str("message", reply.Message).
		Msg("chat reply")
	return nil
}

// MultiSink fans an entry out to several ledger sinks. Every sink is
// attempted; failures are joined.
type MultiSink []LedgerSink

// WriteEntry writes to every sink.
func (m MultiSink) WriteEntry(ctx context.Context, entry domain.LedgerEntry) error {
	var errs []error
	for _, sink := range m {
		if err := sink.WriteEntry(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
