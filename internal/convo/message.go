// Package convo defines the shared conversation vocabulary used across the
// agent session core: messages, content parts, tool calls, and the closed
// set of error kinds a tool result or turn can carry.
//
// Nothing in this package talks to a provider, a store, or a transport; it
// is the wire/persistence shape every other package imports, the same role
// the teacher's pkg/models plays for nexus's channel messages.
package convo

import (
	"encoding/json"
	"regexp"
	"time"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn leg's worth of content. Once appended to a session's
// transcript it is immutable; edits happen by forking or truncating the
// session, never by mutating a Message in place.
type Message struct {
	Role      Role      `json:"role"`
	Created   time.Time `json:"created"`
	ID        string    `json:"id,omitempty"`
	Content   []Part    `json:"content"`
}

// PartType discriminates the Part union.
type PartType string

const (
	PartText         PartType = "text"
	PartThinking     PartType = "thinking"
	PartImage        PartType = "image"
	PartToolRequest  PartType = "tool_request"
	PartToolResponse PartType = "tool_response"
)

// Part is a tagged union over the five content kinds spec.md §3 defines.
// Exactly one of the typed fields is populated, selected by Type.
type Part struct {
	Type PartType `json:"type"`

	// PartText
	Text string `json:"text,omitempty"`

	// PartThinking
	Thinking string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	// PartImage
	ImageData string `json:"image_data,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`

	// PartToolRequest / PartToolResponse pair by ID.
	ID string `json:"id,omitempty"`

	// PartToolRequest
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	RequestErr *ErrorKind `json:"request_err,omitempty"`

	// PartToolResponse
	ResponseContent []Part     `json:"response_content,omitempty"`
	ResponseErr     *ToolError `json:"response_err,omitempty"`
}

// ToolCall is an LLM's request to invoke a named tool with JSON arguments.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// toolNamePattern is the allowed character set for a ToolCall.Name, per
// spec.md §3: "[A-Za-z0-9_-]+". A name failing this pattern converts the
// request into a NotFound error at ingestion time (see NormalizeToolCall).
var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidToolName reports whether name satisfies the ToolCall charset.
func ValidToolName(name string) bool {
	return name != "" && toolNamePattern.MatchString(name)
}

// NewText builds a PartText content part.
func NewText(text string) Part {
	return Part{Type: PartText, Text: text}
}

// NewThinking builds a PartThinking content part.
func NewThinking(thinking, signature string) Part {
	return Part{Type: PartThinking, Thinking: thinking, Signature: signature}
}

// NewImage builds a PartImage content part.
func NewImage(base64Data, mimeType string) Part {
	return Part{Type: PartImage, ImageData: base64Data, MimeType: mimeType}
}

// NewToolRequest builds a tool_request part. If call fails the ToolCall
// charset, the request is converted to a NotFound error per spec.md §3.
func NewToolRequest(id string, call ToolCall) Part {
	if !ValidToolName(call.Name) {
		kind := ErrorToolNotFound
		return Part{Type: PartToolRequest, ID: id, RequestErr: &kind}
	}
	return Part{Type: PartToolRequest, ID: id, ToolCall: &call}
}

// NewToolRequestError builds a tool_request part carrying an error result
// (e.g. ErrorInvalidToolArguments from malformed provider argument JSON).
func NewToolRequestError(id string, kind ErrorKind) Part {
	return Part{Type: PartToolRequest, ID: id, RequestErr: &kind}
}

// NewToolResponse builds an Ok tool_response part paired to id.
func NewToolResponse(id string, content []Part) Part {
	return Part{Type: PartToolResponse, ID: id, ResponseContent: content}
}

// NewToolResponseError builds an Err tool_response part paired to id.
func NewToolResponseError(id string, kind ErrorKind, message string) Part {
	return Part{Type: PartToolResponse, ID: id, ResponseErr: &ToolError{Kind: kind, Message: message}}
}

// ToolError is the error payload of an Err tool_response.
type ToolError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// MarshalArguments renders a ToolCall's arguments back to a canonical JSON
// object, used by the token accountant's "{id}:{name}:{arguments}" encoding.
func (t ToolCall) MarshalArguments() string {
	if len(t.Arguments) == 0 {
		return "{}"
	}
	b, err := json.Marshal(t.Arguments)
	if err != nil {
		return "{}"
	}
	return string(b)
}
