package usage

import (
	"strings"
	"testing"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestCostFormula(t *testing.T) {
	pricing := convo.Pricing{InputPer1k: 3.0, OutputPer1k: 15.0, CachedInputPer1k: 0.3}
	u := Usage{InputTokens: 1000, OutputTokens: 1000, CachedTokens: 1000}
	got := Cost(u, pricing)
	want := 3.0 + 15.0 + (0.3 - 3.0)
	if got != want {
		t.Errorf("Cost() = %v, want %v", got, want)
	}
}

func TestTrackerAggregates(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	tr.Record(NewRecord("s1", "anthropic", "claude-sonnet", Usage{InputTokens: 100, OutputTokens: 50}, nil))
	tr.Record(NewRecord("s1", "anthropic", "claude-sonnet", Usage{InputTokens: 200, OutputTokens: 100}, nil))

	agg, ok := tr.Aggregate("s1")
	if !ok {
		t.Fatalf("expected aggregate for s1")
	}
	if agg.RequestCount != 2 {
		t.Errorf("expected 2 requests, got %d", agg.RequestCount)
	}
	if agg.Usage.InputTokens != 300 {
		t.Errorf("expected 300 input tokens, got %d", agg.Usage.InputTokens)
	}
}

func TestTrackerLeaderboardOrdering(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	tr.Record(NewRecord("cheap", "anthropic", "claude-haiku", Usage{InputTokens: 10}, nil))
	tr.Record(NewRecord("expensive", "anthropic", "claude-opus", Usage{InputTokens: 100000, OutputTokens: 100000}, nil))

	board := tr.Leaderboard()
	if len(board) != 2 || board[0].SessionID != "expensive" {
		t.Fatalf("expected expensive session first, got %+v", board)
	}
}

func TestTrackerExportFormats(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig())
	tr.Record(NewRecord("s1", "openai", "gpt-4o", Usage{InputTokens: 10, OutputTokens: 5}, nil))

	if _, err := tr.Export(ExportJSON); err != nil {
		t.Errorf("JSON export failed: %v", err)
	}
	csvOut, err := tr.Export(ExportCSV)
	if err != nil {
		t.Errorf("CSV export failed: %v", err)
	}
	if !strings.Contains(string(csvOut), "session_id") {
		t.Errorf("expected CSV header, got %q", csvOut)
	}
	mdOut, err := tr.Export(ExportMarkdown)
	if err != nil {
		t.Errorf("Markdown export failed: %v", err)
	}
	if !strings.Contains(string(mdOut), "| timestamp |") {
		t.Errorf("expected markdown header, got %q", mdOut)
	}
	if _, err := tr.Export("bogus"); err == nil {
		t.Errorf("expected error for unknown export format")
	}
}

func TestTrackerMaxRecordsEviction(t *testing.T) {
	tr := NewTracker(TrackerConfig{MaxRecords: 2})
	tr.Record(NewRecord("s1", "openai", "gpt-4o", Usage{InputTokens: 1}, nil))
	tr.Record(NewRecord("s1", "openai", "gpt-4o", Usage{InputTokens: 2}, nil))
	tr.Record(NewRecord("s1", "openai", "gpt-4o", Usage{InputTokens: 3}, nil))

	records := tr.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 retained records, got %d", len(records))
	}
	if records[0].InputTokens != 2 || records[1].InputTokens != 3 {
		t.Errorf("expected oldest record evicted, got %+v", records)
	}
}
