package mcp

import (
	"testing"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestEnvSlice(t *testing.T) {
	out := envSlice(map[string]string{"FOO": "bar"})
	if len(out) != 1 || out[0] != "FOO=bar" {
		t.Fatalf("unexpected env slice: %v", out)
	}
	if envSlice(nil) != nil {
		t.Fatalf("expected nil for empty env")
	}
}

func TestSchemaToMap(t *testing.T) {
	schema := mcpsdk.ToolInputSchema{
		Type:       "object",
		Properties: map[string]any{"input": map[string]any{"type": "string"}},
		Required:   []string{"input"},
	}
	m := schemaToMap(schema)
	if m["type"] != "object" {
		t.Fatalf("expected object type, got %v", m["type"])
	}
	props, ok := m["properties"].(map[string]any)
	if !ok || props["input"] == nil {
		t.Fatalf("expected input property, got %v", m["properties"])
	}
}

func TestManagerAttachDetachIsIdempotent(t *testing.T) {
	m := NewManager()
	binding := convo.ExtensionBinding{Name: "echo", Transport: "/bin/echo"}

	m.Attach(binding)
	m.Attach(binding) // idempotent re-attach should not panic or leak

	m.mu.RLock()
	count := len(m.extensions)
	m.mu.RUnlock()
	if count != 1 {
		t.Fatalf("expected exactly one attached extension, got %d", count)
	}

	m.Detach("echo")
	m.Detach("echo") // idempotent detach

	m.mu.RLock()
	count = len(m.extensions)
	m.mu.RUnlock()
	if count != 0 {
		t.Fatalf("expected no attached extensions after detach, got %d", count)
	}
}

func TestSessionScopesExtensionNamesPerSession(t *testing.T) {
	m := NewManager()
	s1 := NewSession(m, "session-1")
	s2 := NewSession(m, "session-2")

	s1.AddExtension(convo.ExtensionBinding{Name: "echo", Transport: "/bin/echo"})
	s2.AddExtension(convo.ExtensionBinding{Name: "echo", Transport: "/bin/echo"})

	m.mu.RLock()
	count := len(m.extensions)
	m.mu.RUnlock()
	if count != 2 {
		t.Fatalf("expected two scoped extension entries, got %d", count)
	}

	if got := s1.Extensions(); len(got) != 1 || got[0] != "echo" {
		t.Fatalf("expected session 1 to report its own unscoped name, got %v", got)
	}

	s1.RemoveExtension("echo")
	if got := s1.Extensions(); len(got) != 0 {
		t.Fatalf("expected session 1 extensions cleared, got %v", got)
	}
	if got := s2.Extensions(); len(got) != 1 {
		t.Fatalf("expected session 2 extension untouched, got %v", got)
	}
}
