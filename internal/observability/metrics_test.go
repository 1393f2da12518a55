package observability

import (
	"testing"
	"time"
)

func TestNilMetricsMethodsNoop(t *testing.T) {
	var m *Metrics
	m.RecordTurnStarted("anthropic")
	m.RecordTurnDuration("anthropic", time.Second)
	m.RecordTurnCancelled("explicit")
	m.RecordProviderCall("anthropic", "claude-sonnet-4", time.Millisecond)
	m.RecordProviderError("anthropic", "claude-sonnet-4", "provider_request")
	m.RecordProviderTokens("anthropic", "claude-sonnet-4", 10, 20, 0)
	m.RecordToolCall("echo", time.Millisecond)
	m.RecordToolDenied("echo")
	m.SetSessionsActive(3)
	if m.Handler() == nil {
		t.Fatal("expected a non-nil handler even for nil Metrics")
	}
}

func TestNewMetricsRegistersCollectors(t *testing.T) {
	m := NewMetrics("agentcore_test")
	m.RecordTurnStarted("openai")
	m.RecordProviderCall("openai", "gpt-4o", 5*time.Millisecond)
	m.RecordToolCall("shell", time.Millisecond)
	m.SetSessionsActive(2)

	if m.Handler() == nil {
		t.Fatal("expected a scrape handler")
	}
}
