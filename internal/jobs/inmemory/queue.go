package inmemory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-chat/internal/jobs"
)

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// This implementation is suitable for single-instance deployments and testing.
type Queue struct {
	jobChan   chan *jobs.DispatchJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool

	workers    int
	maxRetries int
	backoff    time.Duration

	// outstanding counts published jobs that have not reached a terminal status.
	outstanding atomic.Int64

	timersMu sync.Mutex
	timers   map[*time.Timer]*jobs.DispatchJob
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithMaxRetries sets the retry budget for jobs published without one.
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n >= 0 {
			q.maxRetries = n
		}
	}
}

// WithBackoff sets the base retry delay; attempt n waits n times this value.
func WithBackoff(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.backoff = d
		}
	}
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before Publish blocks.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...Option) *Queue {
	q := &Queue{
		jobChan:    make(chan *jobs.DispatchJob, bufferSize),
		closeChan:  make(chan struct{}),
		store:      store,
		workers:    5,
		maxRetries: 3,
		backoff:    time.Second,
		timers:     make(map[*time.Timer]*jobs.DispatchJob),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish implements the Publisher interface.
func (q *Queue) Publish(ctx context.Context, job *jobs.DispatchJob) error {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.maxRetries
	}

	q.outstanding.Add(1)
	if err := q.enqueue(ctx, job); err != nil {
		q.outstanding.Add(-1)
		return err
	}
	return nil
}

func (q *Queue) enqueue(ctx context.Context, job *jobs.DispatchJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.DispatchJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Error = err.Error()

		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			q.scheduleRetry(ctx, job, time.Duration(job.RetryCount)*q.backoff)
			return
		}
		job.Status = jobs.JobStatusFailed
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	q.save(ctx, job)
	q.outstanding.Add(-1)
}

// scheduleRetry registers the retry timer and records the retrying status
// under timersMu, so Stop either sees the timer or the closed flag wins.
func (q *Queue) scheduleRetry(ctx context.Context, job *jobs.DispatchJob, delay time.Duration) {
	q.timersMu.Lock()
	defer q.timersMu.Unlock()

	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		q.abandon(ctx, job, fmt.Errorf("queue stopped before retry"))
		return
	}

	job.Status = jobs.JobStatusRetrying
	q.save(ctx, job)

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		q.timersMu.Lock()
		delete(q.timers, t)
		q.timersMu.Unlock()

		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		if err := q.enqueue(ctx, job); err != nil {
			q.abandon(ctx, job, err)
		}
	})
	q.timers[t] = job
}

func (q *Queue) abandon(ctx context.Context, job *jobs.DispatchJob, err error) {
	job.Status = jobs.JobStatusFailed
	job.Error = err.Error()
	q.save(ctx, job)
	q.outstanding.Add(-1)
}

func (q *Queue) save(ctx context.Context, job *jobs.DispatchJob) {
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Outstanding returns the number of published jobs not yet completed or failed.
func (q *Queue) Outstanding() int {
	return int(q.outstanding.Load())
}

// Drain blocks until every published job reached a terminal status or ctx is done.
func (q *Queue) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for q.outstanding.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Stop implements the Consumer interface.
// Pending retries are cancelled and marked failed.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	q.timersMu.Lock()
	for t, job := range q.timers {
		if t.Stop() {
			q.abandon(ctx, job, fmt.Errorf("queue stopped before retry"))
		}
		delete(q.timers, t)
	}
	q.timersMu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
