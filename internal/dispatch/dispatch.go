// Package dispatch hands committed operations and chat replies to the
// outbound sinks through the job queue.
package dispatch

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/jobs"
	"github.com/dvloznov/finance-chat/internal/logger"
	"github.com/dvloznov/finance-chat/internal/metrics"
)

// LedgerSink persists one dispatched operation.
type LedgerSink interface {
	WriteEntry(ctx context.Context, entry domain.LedgerEntry) error
}

// ReplySink delivers one reply to the chat platform.
type ReplySink interface {
	Send(ctx context.Context, reply domain.ChatResponse) error
}

// QueueDispatcher publishes ledger entries and replies as dispatch jobs.
// Both calls are fire-and-forget: publish failures are logged, never returned.
type QueueDispatcher struct {
	publisher jobs.Publisher
}

// NewQueueDispatcher creates a dispatcher on top of a job publisher.
func NewQueueDispatcher(publisher jobs.Publisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher}
}

// Dispatch enqueues a ledger entry.
func (d *QueueDispatcher) Dispatch(ctx context.Context, entry domain.LedgerEntry) {
	entryKind := "regular"
	switch {
	case entry.Undo:
		entryKind = "undo"
	case entry.Compensating:
		entryKind = "compensating"
	}
	metrics.RecordOperation(string(entry.Operation.Kind), entryKind)
	log := logger.FromContext(ctx)

	job := &jobs.DispatchJob{
		Type:   jobs.JobTypeDispatchOperation,
		UserID: entry.UserID,
		Entry:  &entry,
	}
	if err := d.publisher.Publish(ctx, job); err != nil {
		log.Error().
			Err(err).
			Str("entry_id", entry.EntryID).
			Str("user_id", entry.UserID).
			Msg("failed to publish ledger entry")
		return
	}
	log.Debug().
		Str("job_id", job.JobID).
		Str("entry_id", entry.EntryID).
		Msg("ledger entry queued")
}

// Deliver enqueues a chat reply.
func (d *QueueDispatcher) Deliver(ctx context.Context, reply domain.ChatResponse) {
	job := &jobs.DispatchJob{
		Type:   jobs.JobTypeDeliverReply,
		UserID: reply.ChatID,
		Reply:  &reply,
	}
	if err := d.publisher.Publish(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("chat_id", reply.ChatID).
			Msg("failed to publish reply")
	}
}

// Handler executes dispatch jobs against the configured sinks.
type Handler struct {
	ledger  LedgerSink
	replies ReplySink
}

// NewHandler creates a job handler.
func NewHandler(ledger LedgerSink, replies ReplySink) *Handler {
	return &Handler{ledger: ledger, replies: replies}
}

// Handle satisfies jobs.JobHandler.
func (h *Handler) Handle(ctx context.Context, job *jobs.DispatchJob) error {
	err := h.handle(ctx, job)
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.RecordDispatchJob(string(job.Type), result)
	return err
}

func (h *Handler) handle(ctx context.Context, job *jobs.DispatchJob) error {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Str("user_id", job.UserID).
		Int("attempt", job.RetryCount+1).
		Logger()

	switch job.Type {
	case jobs.JobTypeDispatchOperation:
		if job.Entry == nil {
			return fmt.Errorf("Handle: job %s has no entry", job.JobID)
		}
		if err := h.ledger.WriteEntry(ctx, *job.Entry); err != nil {
			log.Warn().Err(err).Msg("ledger write failed")
			return fmt.Errorf("Handle: writing entry %s: %w", job.Entry.EntryID, err)
		}
		log.Info().Str("entry_id", job.Entry.EntryID).Msg("ledger entry written")
		return nil

	case jobs.JobTypeDeliverReply:
		if job.Reply == nil {
			return fmt.Errorf("Handle: job %s has no reply", job.JobID)
		}
		if err := h.replies.Send(ctx, *job.Reply); err != nil {
			log.Warn().Err(err).Msg("reply delivery failed")
			return fmt.Errorf("Handle: delivering reply: %w", err)
		}
		log.Debug().Msg("reply delivered")
		return nil

	default:
		return fmt.Errorf("Handle: unknown job type %q", job.Type)
	}
}
