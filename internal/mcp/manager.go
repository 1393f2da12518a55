// Package mcp is the Extension/Tool Manager (spec.md §4.5): it attaches
// Model Context Protocol extensions to a session, aggregates their
// exported tools into a flat per-session namespace, and dispatches tool
// calls against the owning extension with cancellation support.
//
// Stdio-transport extensions are spoken over the real MCP wire protocol
// via github.com/mark3labs/mcp-go, the same client library the corpus's
// mcptoolset package wires in for exactly this job.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpsdk "github.com/mark3labs/mcp-go/mcp"

	"github.com/haasonsaas/agentcore/internal/cancel"
	"github.com/haasonsaas/agentcore/internal/convo"
)

const clientName = "agentcore"
const clientVersion = "0.1.0"
const protocolVersion = "2024-11-05"

// Extension is one connected MCP server: a lazily-established stdio
// connection plus the tool set it advertised at initialize time.
type Extension struct {
	binding convo.ExtensionBinding

	mu        sync.Mutex
	client    *mcpclient.Client
	connected bool
	tools     []convo.Tool
}

func newExtension(binding convo.ExtensionBinding) *Extension {
	return &Extension{binding: binding}
}

func (e *Extension) ensureConnected(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.connected {
		return nil
	}

	command, args := e.binding.Transport, []string(nil)
	env := envSlice(e.binding.Env)

	c, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return fmt.Errorf("mcp: start extension %q: %w", e.binding.Name, err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("mcp: launch extension %q: %w", e.binding.Name, err)
	}

	initReq := mcpsdk.InitializeRequest{}
	initReq.Params.ClientInfo = mcpsdk.Implementation{Name: clientName, Version: clientVersion}
	initReq.Params.ProtocolVersion = protocolVersion
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return fmt.Errorf("mcp: initialize extension %q: %w", e.binding.Name, err)
	}

	listResp, err := c.ListTools(ctx, mcpsdk.ListToolsRequest{})
	if err != nil {
		c.Close()
		return fmt.Errorf("mcp: list tools for extension %q: %w", e.binding.Name, err)
	}

	tools := make([]convo.Tool, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		tools = append(tools, convo.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaToMap(t.InputSchema),
		})
	}

	e.client = c
	e.tools = tools
	e.connected = true
	return nil
}

func (e *Extension) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	e.connected = false
	e.tools = nil
	return err
}

// Dispatch invokes name on this extension with arguments, bounding the
// call by token's context so mid-dispatch cancellation tears the call
// down cooperatively (spec.md §4.5 "Cancellation").
func (e *Extension) dispatch(token *cancel.Token, name string, arguments map[string]any) ([]convo.Part, *convo.ToolError) {
	e.mu.Lock()
	client := e.client
	e.mu.Unlock()
	if client == nil {
		return nil, &convo.ToolError{Kind: convo.ErrorInternal, Message: "extension not connected"}
	}

	req := mcpsdk.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments

	resp, err := client.CallTool(token.Context(), req)
	if err != nil {
		if token.Err() != nil {
			return nil, &convo.ToolError{Kind: convo.ErrorCancelled, Message: err.Error()}
		}
		return nil, &convo.ToolError{Kind: convo.ErrorProviderRequest, Message: err.Error()}
	}

	parts := make([]convo.Part, 0, len(resp.Content))
	for _, c := range resp.Content {
		if tc, ok := c.(mcpsdk.TextContent); ok {
			parts = append(parts, convo.NewText(tc.Text))
		}
	}
	if resp.IsError {
		msg := "tool reported an error"
		if len(parts) > 0 {
			msg = parts[0].Text
		}
		return nil, &convo.ToolError{Kind: convo.ErrorInternal, Message: msg}
	}
	return parts, nil
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func schemaToMap(schema mcpsdk.ToolInputSchema) map[string]any {
	props := make(map[string]any, len(schema.Properties))
	for k, v := range schema.Properties {
		props[k] = v
	}
	out := map[string]any{"type": "object", "properties": props}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}

// Manager owns every attached Extension, keyed by name. It is
// process-wide; per-session tool namespaces are built on top of it by
// Session (session.go).
type Manager struct {
	mu         sync.RWMutex
	extensions map[string]*Extension
}

// NewManager builds an empty Extension/Tool Manager.
func NewManager() *Manager {
	return &Manager{extensions: make(map[string]*Extension)}
}

// Attach registers binding, connecting to it lazily on first use. Idempotent:
// re-attaching the same name replaces the prior binding.
func (m *Manager) Attach(binding convo.ExtensionBinding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.extensions[binding.Name]; ok {
		existing.close()
	}
	m.extensions[binding.Name] = newExtension(binding)
}

// Detach removes name's extension, closing its connection. Idempotent.
func (m *Manager) Detach(name string) {
	m.mu.Lock()
	ext, ok := m.extensions[name]
	delete(m.extensions, name)
	m.mu.Unlock()
	if ok {
		ext.close()
	}
}

// ListTools returns the deduplicated, name-sorted tool list across every
// attached extension in names (or all attached extensions if names is
// empty), connecting lazily as needed.
func (m *Manager) ListTools(ctx context.Context, names []string) ([]convo.Tool, error) {
	exts, err := m.resolve(ctx, names)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var tools []convo.Tool
	for _, ext := range exts {
		ext.mu.Lock()
		for _, t := range ext.tools {
			if !seen[t.Name] {
				seen[t.Name] = true
				tools = append(tools, t)
			}
		}
		ext.mu.Unlock()
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools, nil
}

func (m *Manager) resolve(ctx context.Context, names []string) ([]*Extension, error) {
	m.mu.RLock()
	var exts []*Extension
	if len(names) == 0 {
		for _, ext := range m.extensions {
			exts = append(exts, ext)
		}
	} else {
		for _, n := range names {
			if ext, ok := m.extensions[n]; ok {
				exts = append(exts, ext)
			}
		}
	}
	m.mu.RUnlock()

	for _, ext := range exts {
		if err := ext.ensureConnected(ctx); err != nil {
			return nil, err
		}
	}
	return exts, nil
}

// owningExtension finds which attached extension exports toolName.
func (m *Manager) owningExtension(ctx context.Context, names []string, toolName string) (*Extension, error) {
	exts, err := m.resolve(ctx, names)
	if err != nil {
		return nil, err
	}
	for _, ext := range exts {
		ext.mu.Lock()
		for _, t := range ext.tools {
			if t.Name == toolName {
				ext.mu.Unlock()
				return ext, nil
			}
		}
		ext.mu.Unlock()
	}
	return nil, fmt.Errorf("mcp: no attached extension exports tool %q", toolName)
}

// Dispatch routes call to the extension (among names) that exports it and
// invokes it bounded by token, per spec.md §4.5's dispatch contract.
func (m *Manager) Dispatch(token *cancel.Token, names []string, call convo.ToolCall) ([]convo.Part, *convo.ToolError) {
	ext, err := m.owningExtension(token.Context(), names, call.Name)
	if err != nil {
		return nil, &convo.ToolError{Kind: convo.ErrorToolNotFound, Message: err.Error()}
	}
	return ext.dispatch(token, call.Name, call.Arguments)
}

// DetachAll closes every attached extension, used on process shutdown.
func (m *Manager) DetachAll() {
	m.mu.Lock()
	exts := m.extensions
	m.extensions = make(map[string]*Extension)
	m.mu.Unlock()
	for _, ext := range exts {
		ext.close()
	}
}
