package turn

import (
	"github.com/haasonsaas/agentcore/internal/cancel"
	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/mcp"
	"github.com/haasonsaas/agentcore/internal/policy"
)

// dispatchOne carries one tool-request through the full dispatch contract
// of spec.md §4.4: gate by policy, await confirmation if asked, dispatch
// through the Extension Manager, and return the paired tool_response part.
// It always returns a tool_response — denial and dispatch failure both
// produce one carrying an Err payload rather than propagating an error up
// to the turn, per "tool-level failures become tool_response error parts
// and do not terminate the turn" (internal/convo/errors.go).
func (d *Driver) dispatchOne(token *cancel.Token, sessionID string, mcpSession *mcp.Session, request convo.Part, events chan<- Event) convo.Part {
	if request.RequestErr != nil {
		return d.respond(request, convo.NewToolResponseError(request.ID, *request.RequestErr, "invalid tool request"), events)
	}

	toolName := request.ToolCall.Name
	events <- Event{Kind: EventToolCall, ToolCallID: request.ID, ToolCall: request.ToolCall}

	decision, confirmReq := d.sessions.Policy().Resolve(sessionID, toolName, d.modeFor(sessionID))
	switch decision {
	case policy.DecisionDeny:
		return d.respond(request, convo.NewToolResponseError(request.ID, convo.ErrorDenied, "denied by policy"), events)
	case policy.DecisionConfirm:
		allowed, cancelled := d.awaitConfirmation(token, confirmReq)
		if cancelled {
			return d.respond(request, convo.NewToolResponseError(request.ID, convo.ErrorCancelled, "turn cancelled while awaiting confirmation"), events)
		}
		if !allowed {
			return d.respond(request, convo.NewToolResponseError(request.ID, convo.ErrorDenied, "denied by user"), events)
		}
	}

	content, toolErr := mcpSession.Dispatch(token, *request.ToolCall)
	if toolErr != nil {
		return d.respond(request, convo.Part{Type: convo.PartToolResponse, ID: request.ID, ResponseErr: toolErr}, events)
	}
	return d.respond(request, convo.NewToolResponse(request.ID, content), events)
}

// respond emits the tool_result event matching response and returns it, so
// every dispatchOne exit path shares the single emission point.
func (d *Driver) respond(request convo.Part, response convo.Part, events chan<- Event) convo.Part {
	events <- Event{Kind: EventToolResult, ToolCallID: request.ID, ToolResult: &response}
	return response
}

// awaitConfirmation blocks until confirmReq is resolved (via
// Driver.ResolveConfirmation, typically triggered by a client's
// confirm_tool call) or the turn is cancelled, whichever comes first.
func (d *Driver) awaitConfirmation(token *cancel.Token, confirmReq *convo.ConfirmationRequest) (allowed bool, cancelled bool) {
	ch := d.confirms.register(confirmReq.ID)
	select {
	case <-token.Context().Done():
		d.confirms.forget(confirmReq.ID)
		return false, true
	case decision := <-ch:
		return decision != convo.DecisionDenyOnce, false
	}
}
