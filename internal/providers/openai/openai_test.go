package openai

import (
	"testing"

	oai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestToMessagesIncludesSystemPrompt(t *testing.T) {
	msgs, err := ToMessages(nil, "be helpful")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != oai.ChatMessageRoleSystem || msgs[0].Content != "be helpful" {
		t.Fatalf("expected a single system message, got %+v", msgs)
	}
}

func TestToMessagesSplitsToolResultsOntoOwnMessages(t *testing.T) {
	session := []convo.Message{
		{
			Role: convo.RoleAssistant,
			Content: []convo.Part{
				convo.NewToolResponse("call-1", []convo.Part{convo.NewText("42")}),
			},
		},
	}
	msgs, err := ToMessages(session, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != oai.ChatMessageRoleTool || msgs[0].ToolCallID != "call-1" {
		t.Fatalf("expected a lone tool-role message, got %+v", msgs)
	}
	if msgs[0].Content != "42" {
		t.Fatalf("expected tool result content %q, got %q", "42", msgs[0].Content)
	}
}

func TestToMessagesCarriesToolCallsOnAssistantTurn(t *testing.T) {
	session := []convo.Message{
		{
			Role: convo.RoleAssistant,
			Content: []convo.Part{
				convo.NewToolRequest("call-1", convo.ToolCall{Name: "lookup", Arguments: map[string]any{"x": float64(1)}}),
			},
		},
	}
	msgs, err := ToMessages(session, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || len(msgs[0].ToolCalls) != 1 {
		t.Fatalf("expected one assistant message carrying one tool call, got %+v", msgs)
	}
	if msgs[0].ToolCalls[0].Function.Name != "lookup" {
		t.Fatalf("expected tool call name lookup, got %q", msgs[0].ToolCalls[0].Function.Name)
	}
}

func TestFromMessageDecodesValidToolArguments(t *testing.T) {
	msg := oai.ChatCompletionMessage{
		ToolCalls: []oai.ToolCall{{
			ID:       "call-1",
			Function: oai.FunctionCall{Name: "lookup", Arguments: `{"x":1}`},
		}},
	}
	converted := FromMessage(msg)
	if len(converted.Content) != 1 || converted.Content[0].ToolCall == nil {
		t.Fatalf("expected one tool_request part, got %+v", converted.Content)
	}
	if converted.Content[0].ToolCall.Name != "lookup" {
		t.Fatalf("expected tool name lookup, got %q", converted.Content[0].ToolCall.Name)
	}
}

func TestFromMessageMarksMalformedToolArgumentsAsError(t *testing.T) {
	msg := oai.ChatCompletionMessage{
		ToolCalls: []oai.ToolCall{{
			ID:       "call-1",
			Function: oai.FunctionCall{Name: "lookup", Arguments: `not json`},
		}},
	}
	converted := FromMessage(msg)
	if len(converted.Content) != 1 || converted.Content[0].RequestErr == nil {
		t.Fatalf("expected a request_err part for malformed arguments, got %+v", converted.Content)
	}
	if *converted.Content[0].RequestErr != convo.ErrorInvalidToolArguments {
		t.Fatalf("expected ErrorInvalidToolArguments, got %v", *converted.Content[0].RequestErr)
	}
}

func TestToToolsCarriesSchemaThrough(t *testing.T) {
	tools := []convo.Tool{{Name: "lookup", Description: "looks things up", InputSchema: map[string]any{"type": "object"}}}
	out := ToTools(tools)
	if len(out) != 1 || out[0].Function.Name != "lookup" {
		t.Fatalf("unexpected tool conversion: %+v", out)
	}
}

func TestIsRetryableErrorClassification(t *testing.T) {
	retryable := []string{"rate limit exceeded", "429 too many requests", "503 Service Unavailable", "request timeout"}
	for _, msg := range retryable {
		if !isRetryable(fakeErr(msg)) {
			t.Errorf("expected %q to be classified retryable", msg)
		}
	}
	if isRetryable(fakeErr("invalid api key")) {
		t.Error("expected auth failure to be non-retryable")
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
