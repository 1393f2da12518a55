package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/haasonsaas/agentcore/internal/cancel"
	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/turn"
)

type replyRequest struct {
	SessionID         string          `json:"session_id"`
	UserMessage       json.RawMessage `json:"user_message"`
	ConversationSoFar json.RawMessage `json:"conversation_so_far,omitempty"`
	Mode              string          `json:"mode,omitempty"`
	Plan              json.RawMessage `json:"plan,omitempty"`
	RecipeName        string          `json:"recipe_name,omitempty"`
	RecipeVersion     string          `json:"recipe_version,omitempty"`
}

// handleReply answers "POST /reply → SSE stream" (spec.md §6): it decodes
// the request, starts a turn on the Turn Driver, and relays every
// turn.Event as an `event: <type>\ndata: <json>\n\n` frame until the
// channel closes, grounded on the teacher's streaming SSE writers
// (internal/gateway/streaming.go uses the same Flush-per-frame shape,
// generalized here from channel typing-indicator frames to the Turn
// Driver's own event vocabulary).
func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	var userMessage convo.Message
	if len(req.UserMessage) > 0 {
		var text string
		if err := json.Unmarshal(req.UserMessage, &text); err == nil {
			userMessage = convo.Message{Role: convo.RoleUser, Content: []convo.Part{convo.NewText(text)}}
		} else if err := json.Unmarshal(req.UserMessage, &userMessage); err != nil {
			writeError(w, http.StatusBadRequest, "user_message must be a string or a Message")
			return
		}
		userMessage.Role = convo.RoleUser
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	token := cancel.New(r.Context())
	defer token.Stop()

	events, err := s.driver.Run(r.Context(), turn.Input{
		SessionID:   req.SessionID,
		UserMessage: userMessage,
		Token:       token,
		Stream:      true,
	})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		writeSSEEvent(w, flusher, ev)
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, ev turn.Event) {
	payload := sseFramePayload(ev)
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	flusher.Flush()
}

// sseFramePayload renders one turn.Event into the JSON shape spec.md §6
// names for each frame type (message/thinking carry the message id,
// tool_call/tool_result carry their ids and content, usage carries final
// totals, cancelled carries a reason, error carries the typed Err).
func sseFramePayload(ev turn.Event) any {
	switch ev.Kind {
	case turn.EventMessage, turn.EventThinking:
		return map[string]any{"message_id": ev.MessageID, "delta": ev.Delta}
	case turn.EventToolCall:
		return map[string]any{"id": ev.ToolCallID, "name": toolCallName(ev.ToolCall), "status": "running"}
	case turn.EventToolResult:
		frame := map[string]any{"tool_call_id": ev.ToolCallID, "ok": true}
		if ev.ToolResult != nil {
			if ev.ToolResult.ResponseErr != nil {
				frame["ok"] = false
				frame["err"] = ev.ToolResult.ResponseErr
			} else {
				frame["content"] = ev.ToolResult.ResponseContent
			}
		}
		return frame
	case turn.EventUsage:
		return map[string]any{"usage": ev.Usage}
	case turn.EventCancelled:
		return map[string]any{"reason": ev.CancelReason}
	case turn.EventError:
		return map[string]any{"error": ev.Err}
	default:
		return map[string]any{}
	}
}

func toolCallName(call *convo.ToolCall) string {
	if call == nil {
		return ""
	}
	return call.Name
}
