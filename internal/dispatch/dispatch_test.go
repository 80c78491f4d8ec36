package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/jobs"
	"github.com/dvloznov/finance-chat/internal/logger"
)

type fakePublisher struct {
	jobs []*jobs.DispatchJob
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, job *jobs.DispatchJob) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type recordingSink struct {
	entries []domain.LedgerEntry
	replies []domain.ChatResponse
	err     error
}

func (s *recordingSink) WriteEntry(ctx context.Context, entry domain.LedgerEntry) error {
	s.entries = append(s.entries, entry)
	return s.err
}

func (s *recordingSink) Send(ctx context.Context, reply domain.ChatResponse) error {
	s.replies = append(s.replies, reply)
	return s.err
}

func TestQueueDispatcher(t *testing.T) {
	pub := &fakePublisher{}
	d := NewQueueDispatcher(pub)
	ctx := context.Background()

	entry := domain.LedgerEntry{
		EntryID:   "e1",
		UserID:    "u1",
		Operation: domain.CandidateOperation{Kind: domain.KindExpense, Amount: domain.Amount("10")},
	}
	d.Dispatch(ctx, entry)
	d.Deliver(ctx, domain.ChatResponse{ChatID: "c1", Message: "ok"})

	require.Len(t, pub.jobs, 2)
	assert.Equal(t, jobs.JobTypeDispatchOperation, pub.jobs[0].Type)
	assert.Equal(t, "u1", pub.jobs[0].UserID)
	require.NotNil(t, pub.jobs[0].Entry)
	assert.Equal(t, "e1", pub.jobs[0].Entry.EntryID)

	assert.Equal(t, jobs.JobTypeDeliverReply, pub.jobs[1].Type)
	assert.Equal(t, "c1", pub.jobs[1].UserID)
	require.NotNil(t, pub.jobs[1].Reply)
	assert.Equal(t, "ok", pub.jobs[1].Reply.Message)
}

func TestQueueDispatcher_PublishFailureIsSwallowed(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), zerolog.New(buf))
	d := NewQueueDispatcher(&fakePublisher{err: errors.New("queue is closed")})

	assert.NotPanics(t, func() {
		d.Dispatch(ctx, domain.LedgerEntry{EntryID: "e1"})
		d.Deliver(ctx, domain.ChatResponse{ChatID: "c1"})
	})

	out := buf.String()
	assert.Contains(t, out, "failed to publish ledger entry")
	assert.Contains(t, out, `"entry_id":"e1"`)
	assert.Contains(t, out, "failed to publish reply")
	assert.Contains(t, out, `"chat_id":"c1"`)
}

func TestHandler(t *testing.T) {
	ledger := &recordingSink{}
	replies := &recordingSink{}
	h := NewHandler(ledger, replies)
	ctx := context.Background()

	err := h.Handle(ctx, &jobs.DispatchJob{
		JobID: "j1",
		Type:  jobs.JobTypeDispatchOperation,
		Entry: &domain.LedgerEntry{EntryID: "e1"},
	})
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)
	assert.Equal(t, "e1", ledger.entries[0].EntryID)

	err = h.Handle(ctx, &jobs.DispatchJob{
		JobID: "j2",
		Type:  jobs.JobTypeDeliverReply,
		Reply: &domain.ChatResponse{ChatID: "c1", Message: "hi"},
	})
	require.NoError(t, err)
	require.Len(t, replies.replies, 1)

	assert.Error(t, h.Handle(ctx, &jobs.DispatchJob{JobID: "j3", Type: jobs.JobTypeDispatchOperation}))
	assert.Error(t, h.Handle(ctx, &jobs.DispatchJob{JobID: "j4", Type: jobs.JobTypeDeliverReply}))
	assert.Error(t, h.Handle(ctx, &jobs.DispatchJob{JobID: "j5", Type: "bogus"}))
}

func TestHandler_SinkErrorIsReturned(t *testing.T) {
	sinkErr := errors.New("bigquery unavailable")
	h := NewHandler(&recordingSink{err: sinkErr}, &recordingSink{})

	err := h.Handle(context.Background(), &jobs.DispatchJob{
		Type:  jobs.JobTypeDispatchOperation,
		Entry: &domain.LedgerEntry{EntryID: "e1"},
	})
	assert.ErrorIs(t, err, sinkErr)
}

func TestMultiSink(t *testing.T) {
	first := &recordingSink{err: errors.New("first failed")}
	second := &recordingSink{}
	m := MultiSink{first, second}

	err := m.WriteEntry(context.Background(), domain.LedgerEntry{EntryID: "e1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Len(t, first.entries, 1)
	assert.Len(t, second.entries, 1, "later sinks are attempted after a failure")

	assert.NoError(t, MultiSink{second}.WriteEntry(context.Background(), domain.LedgerEntry{}))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(zerolog.New(&buf))

	require.NoError(t, s.WriteEntry(context.Background(), domain.LedgerEntry{
		EntryID:      "e1",
		Compensating: true,
		Operation:    domain.CandidateOperation{Kind: domain.KindExpense, Amount: domain.Amount("-1000"), Comment: "CANCEL: lunch"},
	}))
	assert.Contains(t, buf.String(), `"amount":"-1000"`)
	assert.Contains(t, buf.String(), `"compensating":true`)

	buf.Reset()
	require.NoError(t, s.Send(context.Background(), domain.ChatResponse{ChatID: "c1", Message: "hello"}))
	assert.Contains(t, buf.String(), `"chat_id":"c1"`)
}

func TestTelegramSink_Send(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	s := NewTelegramSink(srv.URL+"/", "TOKEN")
	err := s.Send(context.Background(), domain.ChatResponse{ChatID: "42", Message: "✅ Recorded"})
	require.NoError(t, err)
	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, "42", gotBody.ChatID)
	assert.Equal(t, "✅ Recorded", gotBody.Text)
}

func TestTelegramSink_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	s := NewTelegramSink(srv.URL, "SECRET")
	err := s.Send(context.Background(), domain.ChatResponse{ChatID: "42", Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")

	err = s.Send(context.Background(), domain.ChatResponse{Message: "hi"})
	require.Error(t, err)

	srv.Close()
	err = s.Send(context.Background(), domain.ChatResponse{ChatID: "42", Message: "hi"})
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "SECRET"), "bot token leaked into error: %v", err)
}
