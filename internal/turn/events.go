package turn

import (
	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/providers"
)

// EventKind is the Turn Driver's output vocabulary (spec.md §4.7): a
// client observes a turn as a linear sequence of these, terminating in
// exactly one of end/cancelled/error.
type EventKind string

const (
	EventMessage    EventKind = "message"
	EventThinking   EventKind = "thinking"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventUsage      EventKind = "usage"
	EventEnd        EventKind = "end"
	EventCancelled  EventKind = "cancelled"
	EventError      EventKind = "error"
)

// Event is one item on a turn's output stream, grounded on the teacher's
// ResponseChunk (internal/agent/provider_types.go) — one struct carrying
// every event kind's payload, discriminated by Kind instead of by which
// optional field is non-nil, since spec.md names the event vocabulary
// explicitly rather than leaving it as an implicit union.
type Event struct {
	Kind EventKind

	// EventMessage / EventThinking: a delta sharing the in-flight
	// assistant message id, so clients can coalesce.
	MessageID string
	Delta     *convo.Part

	// EventToolCall / EventToolResult.
	ToolCallID string
	ToolCall   *convo.ToolCall
	ToolResult *convo.Part

	// EventUsage.
	Usage *providers.Usage

	// EventCancelled.
	CancelReason string

	// EventError.
	Err *convo.Error
}
