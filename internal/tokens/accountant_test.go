package tokens

import (
	"testing"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestCountTextEmpty(t *testing.T) {
	a, err := NewAccountant("gpt-4o")
	if err != nil {
		t.Fatalf("NewAccountant: %v", err)
	}
	if got := a.CountText(""); got != 0 {
		t.Errorf("expected 0 tokens for empty string, got %d", got)
	}
}

func TestCountTextCached(t *testing.T) {
	a, err := NewAccountant("gpt-4o")
	if err != nil {
		t.Fatalf("NewAccountant: %v", err)
	}
	first := a.CountText("the quick brown fox")
	second := a.CountText("the quick brown fox")
	if first != second {
		t.Errorf("expected cached count to match, got %d then %d", first, second)
	}
	if first <= 0 {
		t.Errorf("expected positive token count, got %d", first)
	}
}

func TestCountTools(t *testing.T) {
	a, err := NewAccountant("gpt-4o")
	if err != nil {
		t.Fatalf("NewAccountant: %v", err)
	}
	tools := []convo.Tool{{
		Name:        "get_weather",
		Description: "Get the current weather.",
		InputSchema: map[string]any{
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "City name",
				},
				"unit": map[string]any{
					"type": "string",
					"enum": []any{"celsius", "fahrenheit"},
				},
			},
		},
	}}
	n := a.CountTools(tools)
	if n <= toolSetOverhead {
		t.Errorf("expected tool cost to exceed the flat set overhead, got %d", n)
	}
}

func TestCountChatSkipsImages(t *testing.T) {
	a, err := NewAccountant("gpt-4o")
	if err != nil {
		t.Fatalf("NewAccountant: %v", err)
	}
	withImage := []convo.Message{{Role: convo.RoleUser, Content: []convo.Part{
		convo.NewText("hello"),
		convo.NewImage("base64data", "image/png"),
	}}}
	withoutImage := []convo.Message{{Role: convo.RoleUser, Content: []convo.Part{
		convo.NewText("hello"),
	}}}
	if got, want := a.CountChat("", withImage, nil), a.CountChat("", withoutImage, nil); got != want {
		t.Errorf("expected image part to be skipped, got %d want %d", got, want)
	}
}

func TestCountChatToolRequestResponse(t *testing.T) {
	a, err := NewAccountant("gpt-4o")
	if err != nil {
		t.Fatalf("NewAccountant: %v", err)
	}
	messages := []convo.Message{
		{Role: convo.RoleAssistant, Content: []convo.Part{
			convo.NewToolRequest("t1", convo.ToolCall{Name: "echo", Arguments: map[string]any{"input": "hi"}}),
		}},
		{Role: convo.RoleUser, Content: []convo.Part{
			convo.NewToolResponse("t1", []convo.Part{convo.NewText("hi")}),
		}},
	}
	n := a.CountChat("you are an assistant", messages, nil)
	if n <= 0 {
		t.Errorf("expected positive chat token count, got %d", n)
	}
}

func TestForReusesAccountant(t *testing.T) {
	a1, err := For("gpt-4o-mini")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	a2, err := For("gpt-4o-mini")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if a1 != a2 {
		t.Errorf("expected the same cached accountant instance")
	}
}
