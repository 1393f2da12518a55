package convo

import (
	"reflect"
	"testing"
)

func TestOpenToolRequests(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: []Part{NewText("ping")}},
		{Role: RoleAssistant, Content: []Part{
			NewToolRequest("t1", ToolCall{Name: "echo"}),
			NewToolRequest("t2", ToolCall{Name: "echo"}),
		}},
		{Role: RoleUser, Content: []Part{NewToolResponse("t1", []Part{NewText("hi")})}},
	}
	open := OpenToolRequests(messages)
	if !reflect.DeepEqual(open, []string{"t2"}) {
		t.Fatalf("expected [t2], got %v", open)
	}
}

func TestPairSyntheticErrors(t *testing.T) {
	messages := []Message{
		{Role: RoleAssistant, Content: []Part{NewToolRequest("t1", ToolCall{Name: "echo"})}},
	}
	out := PairSyntheticErrors(messages, ErrorCancelled, "turn cancelled")
	if len(OpenToolRequests(out)) != 0 {
		t.Fatalf("expected no open requests after pairing, got %v", OpenToolRequests(out))
	}
	last := out[len(out)-1]
	if len(last.Content) != 1 || last.Content[0].ResponseErr == nil {
		t.Fatalf("expected synthetic error response, got %+v", last)
	}
	if last.Content[0].ResponseErr.Kind != ErrorCancelled {
		t.Fatalf("expected cancelled kind, got %v", last.Content[0].ResponseErr.Kind)
	}
}

func TestPairSyntheticErrorsNoOpenRequests(t *testing.T) {
	messages := []Message{{Role: RoleUser, Content: []Part{NewText("hi")}}}
	out := PairSyntheticErrors(messages, ErrorCancelled, "x")
	if len(out) != len(messages) {
		t.Fatalf("expected no message appended when nothing open")
	}
}
