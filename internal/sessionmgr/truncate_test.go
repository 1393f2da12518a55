package sessionmgr

import (
	"testing"
	"time"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestTruncateMessagesDropsAtOrAfterCut(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cut := base.Add(time.Minute)
	messages := []convo.Message{
		textMessage(base, "kept"),
		textMessage(cut, "dropped-at-cut"),
		textMessage(cut.Add(time.Minute), "dropped-after"),
	}

	result := truncateMessages(messages, cut)
	if len(result) != 1 {
		t.Fatalf("expected 1 message to survive truncation, got %d", len(result))
	}
	if result[0].Content[0].Text != "kept" {
		t.Fatalf("expected surviving message to be %q, got %q", "kept", result[0].Content[0].Text)
	}
}

func TestTruncateMessagesPairsOrphanedToolRequest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cut := base.Add(time.Minute)
	request := convo.NewToolRequest("call-1", convo.ToolCall{Name: "read_file"})
	messages := []convo.Message{
		{Role: convo.RoleAssistant, Created: base, Content: []convo.Part{request}},
	}

	result := truncateMessages(messages, cut)
	if len(convo.OpenToolRequests(result)) != 0 {
		t.Fatalf("expected no open tool requests after truncation pairing, got %v", convo.OpenToolRequests(result))
	}
}
