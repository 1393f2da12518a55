package convo

// OpenToolRequests returns the ids of tool_request parts in messages that
// have no matching tool_response yet, in transcript order. Used by the
// Turn Driver and Session Manager to enforce the "every tool_request is
// eventually paired" invariant (spec.md §3 Invariants, §8 property 1).
func OpenToolRequests(messages []Message) []string {
	open := map[string]bool{}
	order := make([]string, 0)
	for _, msg := range messages {
		for _, part := range msg.Content {
			switch part.Type {
			case PartToolRequest:
				if !open[part.ID] {
					order = append(order, part.ID)
				}
				open[part.ID] = true
			case PartToolResponse:
				if open[part.ID] {
					delete(open, part.ID)
				}
			}
		}
	}
	result := make([]string, 0, len(order))
	for _, id := range order {
		if open[id] {
			result = append(result, id)
		}
	}
	return result
}

// PairSyntheticErrors appends a tool_response message pairing every open
// tool_request in messages with the given error kind. Used on cancellation
// (ErrorCancelled) and on truncation (ErrorTruncated).
func PairSyntheticErrors(messages []Message, kind ErrorKind, message string) []Message {
	open := OpenToolRequests(messages)
	if len(open) == 0 {
		return messages
	}
	parts := make([]Part, 0, len(open))
	for _, id := range open {
		parts = append(parts, NewToolResponseError(id, kind, message))
	}
	return append(messages, Message{Role: RoleAssistant, Content: parts})
}

// HasToolRequests reports whether msg contains at least one tool_request.
func HasToolRequests(msg Message) bool {
	for _, part := range msg.Content {
		if part.Type == PartToolRequest {
			return true
		}
	}
	return false
}

// ToolRequests returns every tool_request part in msg, in order.
func ToolRequests(msg Message) []Part {
	var out []Part
	for _, part := range msg.Content {
		if part.Type == PartToolRequest {
			out = append(out, part)
		}
	}
	return out
}

// TextContent concatenates the text of every PartText in parts, used by the
// token accountant's tool_response accounting (images are skipped).
func TextContent(parts []Part) string {
	var out string
	for _, p := range parts {
		if p.Type == PartText {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	return out
}
