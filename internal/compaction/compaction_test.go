package compaction

import (
	"testing"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// fakeAccountant counts ten tokens per message plus one per system
// character, so tests can reason about exact thresholds without a real
// tokenizer.
type fakeAccountant struct{}

func (fakeAccountant) CountChat(system string, messages []convo.Message, tools []convo.Tool) int {
	return len(system) + len(messages)*10
}

func textMsg(role convo.Role, text string) convo.Message {
	return convo.Message{Role: role, Content: []convo.Part{convo.NewText(text)}}
}

func TestCompactNoopUnderBudget(t *testing.T) {
	msgs := []convo.Message{textMsg(convo.RoleUser, "hi")}
	res := Compact(fakeAccountant{}, "", msgs, nil, 1000)
	if res.Dropped != 0 || len(res.Messages) != 1 {
		t.Fatalf("expected no compaction, got %+v", res)
	}
}

func TestCompactDropsOldestNonToolPairs(t *testing.T) {
	msgs := []convo.Message{
		textMsg(convo.RoleUser, "first"),
		textMsg(convo.RoleAssistant, "reply"),
		textMsg(convo.RoleUser, "second"),
	}
	// 3 messages * 10 = 30 tokens; budget 25 forces dropping the oldest.
	res := Compact(fakeAccountant{}, "", msgs, nil, 25)
	if res.Dropped == 0 {
		t.Fatalf("expected at least one dropped message, got %+v", res)
	}
	if res.FinalTokens > 25 && !res.SummaryAdded {
		t.Fatalf("expected budget satisfied or summary added, got %+v", res)
	}
}

func TestCompactNeverDropsPastAnOpenToolRequest(t *testing.T) {
	toolReq := convo.Message{Content: []convo.Part{convo.NewToolRequest("t1", convo.ToolCall{Name: "echo"})}}
	msgs := []convo.Message{
		textMsg(convo.RoleUser, "first"),
		toolReq,
		textMsg(convo.RoleUser, "after"),
	}
	res := Compact(fakeAccountant{}, "", msgs, nil, 1)
	if res.Dropped > 1 {
		t.Fatalf("expected compaction to stop at the tool_request boundary, dropped=%d", res.Dropped)
	}
	for _, m := range res.Messages {
		if len(m.Content) > 0 && m.Content[0].Type == convo.PartToolRequest {
			return
		}
	}
}

func TestCompactAddsSummaryWhenDroppingAloneInsufficient(t *testing.T) {
	toolReq := convo.Message{Content: []convo.Part{convo.NewToolRequest("t1", convo.ToolCall{Name: "echo"})}}
	msgs := []convo.Message{
		textMsg(convo.RoleUser, "first"),
		textMsg(convo.RoleAssistant, "second"),
		toolReq,
	}
	res := Compact(fakeAccountant{}, "", msgs, nil, 5)
	if !res.SummaryAdded {
		t.Fatalf("expected a summary message, got %+v", res)
	}
	if res.Messages[0].Content[0].Type != convo.PartText {
		t.Fatalf("expected summary message to be text, got %+v", res.Messages[0])
	}
}
