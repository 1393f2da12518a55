package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// Prompt is a normalized MCP prompt advertised by an attached extension,
// surfaced through the Session Manager's list_prompts operation.
type Prompt struct {
	ExtensionName string              `json:"extension_name"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Arguments     []PromptArgument    `json:"arguments,omitempty"`
}

// PromptArgument describes one named input a Prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptResult is the rendered message set a get_prompt call returns.
type PromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []convo.Message `json:"messages"`
}

// UIResource is a single resource body read via read_ui_resource.
type UIResource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mime_type,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"` // base64, when the resource is binary
}

func (e *Extension) listPrompts(ctx context.Context) ([]Prompt, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	client := e.client
	e.mu.Unlock()

	resp, err := client.ListPrompts(ctx, mcpsdk.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list prompts for extension %q: %w", e.binding.Name, err)
	}

	out := make([]Prompt, 0, len(resp.Prompts))
	for _, p := range resp.Prompts {
		args := make([]PromptArgument, 0, len(p.Arguments))
		for _, a := range p.Arguments {
			args = append(args, PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required})
		}
		out = append(out, Prompt{ExtensionName: e.binding.Name, Name: p.Name, Description: p.Description, Arguments: args})
	}
	return out, nil
}

func (e *Extension) getPrompt(ctx context.Context, name string, arguments map[string]string) (*PromptResult, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	client := e.client
	e.mu.Unlock()

	req := mcpsdk.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments

	resp, err := client.GetPrompt(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mcp: get prompt %q from extension %q: %w", name, e.binding.Name, err)
	}

	messages := make([]convo.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		role := convo.RoleUser
		if m.Role == mcpsdk.RoleAssistant {
			role = convo.RoleAssistant
		}
		if tc, ok := m.Content.(mcpsdk.TextContent); ok {
			messages = append(messages, convo.Message{Role: role, Content: []convo.Part{convo.NewText(tc.Text)}})
		}
	}
	return &PromptResult{Description: resp.Description, Messages: messages}, nil
}

func (e *Extension) readResource(ctx context.Context, uri string) (*UIResource, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	client := e.client
	e.mu.Unlock()

	req := mcpsdk.ReadResourceRequest{}
	req.Params.URI = uri

	resp, err := client.ReadResource(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mcp: read resource %q from extension %q: %w", uri, e.binding.Name, err)
	}
	if len(resp.Contents) == 0 {
		return &UIResource{URI: uri}, nil
	}
	switch c := resp.Contents[0].(type) {
	case mcpsdk.TextResourceContents:
		return &UIResource{URI: c.URI, MimeType: c.MIMEType, Text: c.Text}, nil
	case mcpsdk.BlobResourceContents:
		return &UIResource{URI: c.URI, MimeType: c.MIMEType, Blob: c.Blob}, nil
	default:
		return &UIResource{URI: uri}, nil
	}
}

// ListPrompts aggregates prompts across every extension in names (or all
// attached extensions if names is empty).
func (m *Manager) ListPrompts(ctx context.Context, names []string) ([]Prompt, error) {
	exts, err := m.resolve(ctx, names)
	if err != nil {
		return nil, err
	}
	var out []Prompt
	for _, ext := range exts {
		prompts, err := ext.listPrompts(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, prompts...)
	}
	return out, nil
}

// GetPrompt renders the named prompt from whichever of names exports it.
func (m *Manager) GetPrompt(ctx context.Context, names []string, name string, arguments map[string]string) (*PromptResult, error) {
	exts, err := m.resolve(ctx, names)
	if err != nil {
		return nil, err
	}
	for _, ext := range exts {
		prompts, err := ext.listPrompts(ctx)
		if err != nil {
			continue
		}
		for _, p := range prompts {
			if p.Name == name {
				return ext.getPrompt(ctx, name, arguments)
			}
		}
	}
	return nil, fmt.Errorf("mcp: no attached extension exports prompt %q", name)
}

// ReadResource reads uri from whichever of names' extensions serves it,
// trying each in order until one succeeds.
func (m *Manager) ReadResource(ctx context.Context, names []string, uri string) (*UIResource, error) {
	exts, err := m.resolve(ctx, names)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, ext := range exts {
		res, err := ext.readResource(ctx, uri)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("mcp: no attached extension serves resource %q", uri)
	}
	return nil, lastErr
}

// ListPrompts aggregates prompts across this session's attached extensions.
func (s *Session) ListPrompts(ctx context.Context) ([]Prompt, error) {
	return s.manager.ListPrompts(ctx, s.scopedKeys())
}

// GetPrompt renders a prompt bound to this session.
func (s *Session) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*PromptResult, error) {
	return s.manager.GetPrompt(ctx, s.scopedKeys(), name, arguments)
}

// ReadResource reads a UI resource exposed by one of this session's
// extensions.
func (s *Session) ReadResource(ctx context.Context, uri string) (*UIResource, error) {
	return s.manager.ReadResource(ctx, s.scopedKeys(), uri)
}
