// Package metrics exposes Prometheus collectors for the chat pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "finance_chat"

var (
	// messagesProcessed counts inbound messages by the stage that produced the reply.
	// Labels: stage (admin, onboarding, learning, meta, finalize), outcome (success, clarification, error)
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orchestrator",
		Name:      "messages_total",
		Help:      "Inbound chat messages by terminal stage and outcome",
	}, []string{"stage", "outcome"})

	// processingLatency measures end-to-end handling of one message.
	processingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "orchestrator",
		Name:      "latency_seconds",
		Help:      "Time to process one inbound message",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})

	// operationsCommitted counts ledger entries handed to the dispatcher.
	// Labels: kind (INCOME, EXPENSES, ...), entry (regular, compensating, undo)
	operationsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Operations dispatched to the ledger sinks",
	}, []string{"kind", "entry"})

	// interpreterLatency measures model round trips.
	// Labels: call (interpret, extract), status (success, error)
	interpreterLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "interpreter",
		Name:      "latency_seconds",
		Help:      "Interpreter call latency in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"call", "status"})

	// interpreterTokens counts tokens reported by the model backend.
	// Labels: model, type (prompt, completion, reasoning)
	interpreterTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "interpreter",
		Name:      "tokens_total",
		Help:      "Model tokens consumed",
	}, []string{"model", "type"})

	// dispatchJobs counts dispatch handler attempts.
	// Labels: type (dispatch_operation, deliver_reply), result (success, error)
	dispatchJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "jobs_total",
		Help:      "Dispatch job attempts by type and result",
	}, []string{"type", "result"})
)

// RecordMessage records the terminal stage and outcome of one message.
func RecordMessage(stage, outcome string, durationSec float64) {
	messagesProcessed.WithLabelValues(stage, outcome).Inc()
	processingLatency.WithLabelValues(stage).Observe(durationSec)
}

// RecordOperation records one dispatched ledger entry.
func RecordOperation(kind, entry string) {
	operationsCommitted.WithLabelValues(kind, entry).Inc()
}

// RecordInterpreterCall records a model round trip.
func RecordInterpreterCall(call, status string, durationSec float64) {
	interpreterLatency.WithLabelValues(call, status).Observe(durationSec)
}

// RecordTokens adds reported token usage.
func RecordTokens(model string, prompt, completion, reasoning int) {
	if model == "" {
		model = "unknown"
	}
	interpreterTokens.WithLabelValues(model, "prompt").Add(float64(prompt))
	interpreterTokens.WithLabelValues(model, "completion").Add(float64(completion))
	if reasoning > 0 {
		interpreterTokens.WithLabelValues(model, "reasoning").Add(float64(reasoning))
	}
}

// RecordDispatchJob records the result of one dispatch attempt.
func RecordDispatchJob(jobType, result string) {
	dispatchJobs.WithLabelValues(jobType, result).Inc()
}
