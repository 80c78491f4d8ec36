package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordMessage(t *testing.T) {
	before := testutil.ToFloat64(messagesProcessed.WithLabelValues("finalize", "success"))
	RecordMessage("finalize", "success", 0.2)
	after := testutil.ToFloat64(messagesProcessed.WithLabelValues("finalize", "success"))
	if after-before != 1 {
		t.Errorf("messages_total delta = %v, want 1", after-before)
	}
}

func TestRecordTokens(t *testing.T) {
	RecordTokens("", 10, 5, 0)
	if got := testutil.ToFloat64(interpreterTokens.WithLabelValues("unknown", "prompt")); got < 10 {
		t.Errorf("prompt tokens = %v, want >= 10", got)
	}
	if got := testutil.ToFloat64(interpreterTokens.WithLabelValues("unknown", "reasoning")); got != 0 {
		t.Errorf("reasoning tokens = %v, want 0", got)
	}
}

func TestRecordOperationAndDispatch(t *testing.T) {
	RecordOperation("EXPENSES", "compensating")
	if got := testutil.ToFloat64(operationsCommitted.WithLabelValues("EXPENSES", "compensating")); got != 1 {
		t.Errorf("operations_total = %v, want 1", got)
	}
	RecordDispatchJob("deliver_reply", "error")
	if got := testutil.ToFloat64(dispatchJobs.WithLabelValues("deliver_reply", "error")); got != 1 {
		t.Errorf("jobs_total = %v, want 1", got)
	}
}
