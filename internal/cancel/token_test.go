package cancel

import (
	"context"
	"testing"
	"time"
)

func TestCancelExplicit(t *testing.T) {
	tok := New(context.Background())
	tok.Cancel(ReasonExplicit)
	reason, ok := tok.Cancelled()
	if !ok || reason != ReasonExplicit {
		t.Fatalf("expected explicit cancellation, got %v %v", reason, ok)
	}
	if tok.Context().Err() == nil {
		t.Fatalf("expected context to be done")
	}
}

func TestCancelIdempotentFirstReasonWins(t *testing.T) {
	tok := New(context.Background())
	tok.Cancel(ReasonExplicit)
	tok.Cancel(ReasonDisconnect)
	reason, _ := tok.Cancelled()
	if reason != ReasonExplicit {
		t.Fatalf("expected first cancel reason to win, got %v", reason)
	}
}

func TestWithTimeoutRecordsTimeoutReason(t *testing.T) {
	tok := WithTimeout(context.Background(), 10*time.Millisecond)
	<-tok.Context().Done()
	time.Sleep(5 * time.Millisecond)
	reason, ok := tok.Cancelled()
	if !ok || reason != ReasonTimeout {
		t.Fatalf("expected timeout cancellation, got %v %v", reason, ok)
	}
}

func TestStopDoesNotRecordReason(t *testing.T) {
	tok := New(context.Background())
	tok.Stop()
	if _, ok := tok.Cancelled(); ok {
		t.Fatalf("expected Stop not to record a cancellation reason")
	}
}
