package mcp

import (
	"context"
	"sync"

	"github.com/haasonsaas/agentcore/internal/cancel"
	"github.com/haasonsaas/agentcore/internal/convo"
)

// Session is the per-session facade over a process-wide Manager: it keeps
// track of which extensions are bound to one session, scoping each
// binding's key by session id so that two sessions attaching an extension
// of the same name never collide in the shared Manager (spec.md §4.5:
// "per session set of extensions").
type Session struct {
	id      string
	manager *Manager

	mu    sync.RWMutex
	names []string          // binding names, in attach order
	keys  map[string]string // binding.Name -> scoped key
}

// NewSession builds a Session facade over manager for sessionID.
func NewSession(manager *Manager, sessionID string) *Session {
	return &Session{id: sessionID, manager: manager, keys: make(map[string]string)}
}

func (s *Session) scopedKey(name string) string {
	return s.id + ":" + name
}

// AddExtension attaches binding to this session, idempotently: re-adding
// the same name replaces the prior binding's configuration.
func (s *Session) AddExtension(binding convo.ExtensionBinding) {
	key := s.scopedKey(binding.Name)
	scoped := binding
	scoped.Name = key
	s.manager.Attach(scoped)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[binding.Name]; !ok {
		s.names = append(s.names, binding.Name)
	}
	s.keys[binding.Name] = key
}

// RemoveExtension detaches name from this session. Idempotent.
func (s *Session) RemoveExtension(name string) {
	s.mu.Lock()
	key, ok := s.keys[name]
	if ok {
		delete(s.keys, name)
		for i, n := range s.names {
			if n == name {
				s.names = append(s.names[:i], s.names[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if ok {
		s.manager.Detach(key)
	}
}

// Extensions lists the names of extensions currently bound to this
// session, in attach order.
func (s *Session) Extensions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Session) scopedKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.names))
	for _, n := range s.names {
		keys = append(keys, s.keys[n])
	}
	return keys
}

// ListTools returns the deduplicated, sorted tool list across this
// session's attached extensions (spec.md §4.5 list_tools).
func (s *Session) ListTools(ctx context.Context) ([]convo.Tool, error) {
	return s.manager.ListTools(ctx, s.scopedKeys())
}

// Dispatch routes call to whichever of this session's extensions exports
// it, bounded by token.
func (s *Session) Dispatch(token *cancel.Token, call convo.ToolCall) ([]convo.Part, *convo.ToolError) {
	return s.manager.Dispatch(token, s.scopedKeys(), call)
}

// Close detaches every extension bound to this session, for session
// deletion or restart.
func (s *Session) Close() {
	for _, name := range s.Extensions() {
		s.RemoveExtension(name)
	}
}
