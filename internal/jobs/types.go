package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// ErrJobNotFound is returned by a JobStore for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeDispatchOperation writes one ledger entry to the configured sinks.
	JobTypeDispatchOperation JobType = "dispatch_operation"
	// JobTypeDeliverReply sends one reply to the chat platform.
	JobTypeDeliverReply JobType = "deliver_reply"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Terminal reports whether no further processing will happen.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// DispatchJob is one unit of outbound work: a ledger entry or a chat reply.
type DispatchJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	Type   JobType `json:"type"`
	UserID string  `json:"user_id"`

	// Entry is set for dispatch_operation jobs.
	Entry *domain.LedgerEntry `json:"entry,omitempty"`
	// Reply is set for deliver_reply jobs.
	Reply *domain.ChatResponse `json:"reply,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues dispatch jobs.
type Publisher interface {
	Publish(ctx context.Context, job *DispatchJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer runs a handler over queued jobs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error triggers a retry.
type JobHandler func(ctx context.Context, job *DispatchJob) error

// JobStore tracks job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *DispatchJob) error
	GetJob(ctx context.Context, jobID string) (*DispatchJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*DispatchJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Type   JobType
	Status JobStatus

	// Limit limits the number of results.
	Limit int
	// Offset for pagination.
	Offset int
}
