// Package compaction implements the Turn Driver's context-compaction step
// (spec.md §4.8): when a request's projected token cost exceeds the
// model's context window, drop the oldest non-tool message pairs and, if
// still over budget, fold the dropped prefix into a single bounded
// "context summary" message. An unpaired tool_request/tool_response is
// never elided.
package compaction

import (
	"fmt"

	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/tokens"
)

// SummaryMaxChars bounds the size of the synthesized "context summary"
// message prepended when dropping alone does not bring the transcript under
// budget.
const SummaryMaxChars = 2000

// Accountant is the subset of *tokens.Accountant compaction needs, so
// callers can pass a fake in tests without constructing a real tokenizer.
type Accountant interface {
	CountChat(system string, messages []convo.Message, tools []convo.Tool) int
}

var _ Accountant = (*tokens.Accountant)(nil)

// Result is the outcome of a Compact call: the (possibly unchanged)
// message list, plus how many leading messages were dropped and whether a
// summary message was prepended.
type Result struct {
	Messages       []convo.Message
	Dropped        int
	SummaryAdded   bool
	FinalTokens    int
	StillOverLimit bool
}

// Compact reduces messages to fit contextTokens, following spec.md §4.8's
// ordered strategy: drop oldest wholly-non-tool pairs first; if still over
// budget, summarize the dropped prefix into one prepended text message.
// system and tools are held fixed; only messages is eligible for
// reduction.
func Compact(acc Accountant, system string, messages []convo.Message, tools []convo.Tool, contextTokens int) Result {
	if acc.CountChat(system, messages, tools) <= contextTokens {
		return Result{Messages: messages, FinalTokens: acc.CountChat(system, messages, tools)}
	}

	droppable := compactibleBoundary(messages)
	working := messages
	dropped := 0

	for dropped+2 <= droppable && acc.CountChat(system, working, tools) > contextTokens {
		working = working[2:]
		dropped += 2
	}

	if acc.CountChat(system, working, tools) <= contextTokens {
		return Result{Messages: working, Dropped: dropped, FinalTokens: acc.CountChat(system, working, tools)}
	}

	summary := summarize(messages[:dropped])
	withSummary := append([]convo.Message{summary}, working...)
	finalTokens := acc.CountChat(system, withSummary, tools)

	return Result{
		Messages:       withSummary,
		Dropped:        dropped,
		SummaryAdded:   true,
		FinalTokens:    finalTokens,
		StillOverLimit: finalTokens > contextTokens,
	}
}

// compactibleBoundary returns the number of leading messages in messages
// that contain no tool_request/tool_response part at all — the prefix
// Compact is allowed to drop without risking splitting a pair, per
// spec.md §4.8 ("never elides an unpaired tool_request/tool_response").
func compactibleBoundary(messages []convo.Message) int {
	n := 0
	for _, msg := range messages {
		if hasToolParts(msg) {
			break
		}
		n++
	}
	return n
}

func hasToolParts(msg convo.Message) bool {
	for _, part := range msg.Content {
		if part.Type == convo.PartToolRequest || part.Type == convo.PartToolResponse {
			return true
		}
	}
	return false
}

// summarize folds dropped into a single bounded "context summary" text
// message, prepended ahead of the retained transcript.
func summarize(dropped []convo.Message) convo.Message {
	if len(dropped) == 0 {
		return convo.Message{Role: convo.RoleAssistant, Content: []convo.Part{convo.NewText("")}}
	}
	var userTurns, assistantTurns int
	for _, msg := range dropped {
		if msg.Role == convo.RoleUser {
			userTurns++
		} else {
			assistantTurns++
		}
	}
	text := fmt.Sprintf("[context summary: %d earlier user message(s) and %d earlier assistant message(s) were removed to fit the model's context window]", userTurns, assistantTurns)
	if len(text) > SummaryMaxChars {
		text = text[:SummaryMaxChars]
	}
	return convo.Message{Role: convo.RoleAssistant, Content: []convo.Part{convo.NewText(text)}}
}
