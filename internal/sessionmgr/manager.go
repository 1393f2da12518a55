package sessionmgr

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/mcp"
	"github.com/haasonsaas/agentcore/internal/policy"
	"github.com/haasonsaas/agentcore/internal/providers"
)

// Manager is the Session Manager (spec.md §4.9, C9) and doubles as the
// Conversation Store (C3) per the Open Questions decision recorded in
// DESIGN.md: a session's transcript lives on convo.Session itself, so
// there is no separate store type for it.
type Manager struct {
	store    Store
	mcp      *mcp.Manager
	policy   *policy.Manager
	registry *providers.Registry
	locker   *TurnLocker
	lru      *lru

	extensions map[string]*mcp.Session
}

// NewManager builds a Session Manager backed by store, dispatching
// extension traffic through mcpManager and permission checks through
// policyManager, and building providers from registry.
func NewManager(store Store, mcpManager *mcp.Manager, policyManager *policy.Manager, registry *providers.Registry, capacity int) *Manager {
	return &Manager{
		store:      store,
		mcp:        mcpManager,
		policy:     policyManager,
		registry:   registry,
		locker:     NewTurnLocker(),
		lru:        newLRU(capacity),
		extensions: make(map[string]*mcp.Session),
	}
}

// ctx is used internally for Store calls that don't carry one through
// the Manager's method signatures; these operations never block on
// anything but the store itself (in-memory map access or a single local
// round trip), so a bare background context is sufficient.
func (m *Manager) ctx() context.Context {
	return context.Background()
}

func (m *Manager) mcpSession(sessionID string) *mcp.Session {
	if s, ok := m.extensions[sessionID]; ok {
		return s
	}
	s := mcp.NewSession(m.mcp, sessionID)
	m.extensions[sessionID] = s
	return s
}

// Create starts a new session (spec.md §4.9 "create"), evicting the
// least-recently-touched session if this pushes the manager over its
// capacity.
func (m *Manager) Create(name, workingDir, providerName string, model convo.ModelConfig) (*convo.Session, error) {
	session := &convo.Session{
		ID:           uuid.NewString(),
		Name:         name,
		WorkingDir:   workingDir,
		ProviderName: providerName,
		ModelConfig:  model,
	}
	if err := m.store.Create(m.ctx(), session); err != nil {
		return nil, err
	}
	if evict := m.lru.touch(session.ID); evict != "" && evict != session.ID {
		_ = m.Delete(evict)
	}
	return session, nil
}

// Get retrieves a session by id, touching its LRU entry.
func (m *Manager) Get(sessionID string) (*convo.Session, error) {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return nil, err
	}
	m.lru.touch(sessionID)
	return session, nil
}

// List returns sessions per opts.
func (m *Manager) List(opts ListOptions) ([]*convo.Session, error) {
	return m.store.List(m.ctx(), opts)
}

// AppendMessages appends msgs to sessionID's transcript and persists the
// result, returning the updated session.
func (m *Manager) AppendMessages(sessionID string, msgs ...convo.Message) (*convo.Session, error) {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return nil, err
	}
	session.Messages = append(session.Messages, msgs...)
	if err := m.store.Update(m.ctx(), session); err != nil {
		return nil, err
	}
	return session, nil
}

// ReplaceMessages overwrites sessionID's transcript wholesale, used by the
// Turn Driver after compaction folds the history down to fit the model's
// context window.
func (m *Manager) ReplaceMessages(sessionID string, messages []convo.Message) (*convo.Session, error) {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return nil, err
	}
	session.Messages = messages
	if err := m.store.Update(m.ctx(), session); err != nil {
		return nil, err
	}
	return session, nil
}

// MCPSession exposes sessionID's extension facade so the Turn Driver can
// list tools and dispatch tool calls without reimplementing extension
// routing.
func (m *Manager) MCPSession(sessionID string) *mcp.Session {
	return m.mcpSession(sessionID)
}

// Policy exposes the Permission Manager this Manager was built with, so
// the Turn Driver can gate tool dispatch through the same policy table
// Session Manager operations like ConfirmTool use.
func (m *Manager) Policy() *policy.Manager {
	return m.policy
}

// Registry exposes the provider registry this Manager was built with.
func (m *Manager) Registry() *providers.Registry {
	return m.registry
}

// TurnLocker exposes the per-session turn lock so the Turn Driver can
// enforce "exactly one active turn per session" at the point where it
// actually begins a turn.
func (m *Manager) TurnLocker() *TurnLocker {
	return m.locker
}

// Delete removes a session and all of its ancillary state: its turn
// lock, its attached extensions, its confirmation inbox, and its LRU
// entry.
func (m *Manager) Delete(sessionID string) error {
	if err := m.store.Delete(m.ctx(), sessionID); err != nil {
		return err
	}
	if s, ok := m.extensions[sessionID]; ok {
		s.Close()
		delete(m.extensions, sessionID)
	}
	m.policy.DropSession(sessionID)
	m.locker.Drop(sessionID)
	m.lru.forget(sessionID)
	return nil
}

// Rename sets a session's display name (spec.md §4.9 "rename").
func (m *Manager) Rename(sessionID, name string) error {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return err
	}
	session.Name = name
	return m.store.Update(m.ctx(), session)
}

// SetWorkingDir updates the working directory a session's tool calls
// resolve relative paths against (spec.md §4.9 "set_working_dir").
func (m *Manager) SetWorkingDir(sessionID, dir string) error {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return err
	}
	session.WorkingDir = dir
	return m.store.Update(m.ctx(), session)
}

// UpdateProvider changes a session's bound provider/model configuration
// (spec.md §6 "POST /agent/update_provider"), taking effect on the next
// turn — it does not itself rebuild the live provider, Restart does.
func (m *Manager) UpdateProvider(sessionID, providerName string, model convo.ModelConfig) error {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return err
	}
	if providerName != "" {
		session.ProviderName = providerName
	}
	session.ModelConfig = model
	return m.store.Update(m.ctx(), session)
}

// UpdateRecipeValues merges values into a session's recipe parameters
// (spec.md §4.9 "update_recipe_values").
func (m *Manager) UpdateRecipeValues(sessionID string, values map[string]string) error {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return err
	}
	if session.Recipe == nil {
		return fmt.Errorf("sessionmgr: session %s has no recipe", sessionID)
	}
	if session.Recipe.Parameters == nil {
		session.Recipe.Parameters = make(map[string]string, len(values))
	}
	for k, v := range values {
		session.Recipe.Parameters[k] = v
	}
	return m.store.Update(m.ctx(), session)
}

// Restart re-attaches a session's extensions and re-hydrates its
// provider (spec.md §4.9 "restart (re-attach extensions and re-hydrate
// provider)"): the mcp.Session is dropped and rebuilt from the session's
// stored bindings, and a fresh LLMProvider is built from the registry.
func (m *Manager) Restart(sessionID string) (providers.LLMProvider, error) {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return nil, err
	}

	if old, ok := m.extensions[sessionID]; ok {
		old.Close()
	}
	fresh := mcp.NewSession(m.mcp, sessionID)
	for _, binding := range session.Extensions {
		fresh.AddExtension(binding)
	}
	m.extensions[sessionID] = fresh

	provider, err := m.registry.Build(session.ProviderName, map[string]string{"model": session.ModelConfig.ModelName})
	if err != nil {
		return nil, fmt.Errorf("sessionmgr: restart provider %q: %w", session.ProviderName, err)
	}
	return provider, nil
}

// AddExtension binds an extension to a session, persisting the binding
// and attaching it to the session's live mcp.Session.
func (m *Manager) AddExtension(sessionID string, binding convo.ExtensionBinding) error {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return err
	}
	session.Extensions = append(session.Extensions, binding)
	if err := m.store.Update(m.ctx(), session); err != nil {
		return err
	}
	m.mcpSession(sessionID).AddExtension(binding)
	return nil
}

// RemoveExtension unbinds an extension from a session.
func (m *Manager) RemoveExtension(sessionID, name string) error {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return err
	}
	kept := make([]convo.ExtensionBinding, 0, len(session.Extensions))
	for _, b := range session.Extensions {
		if b.Name != name {
			kept = append(kept, b)
		}
	}
	session.Extensions = kept
	if err := m.store.Update(m.ctx(), session); err != nil {
		return err
	}
	m.mcpSession(sessionID).RemoveExtension(name)
	return nil
}

// ListPrompts, GetPrompt, and ReadResource delegate to the session's
// mcp.Session facade (spec.md §4.9 "read_ui_resource, list_prompts,
// get_prompt").

func (m *Manager) ListPrompts(ctx context.Context, sessionID string) ([]mcp.Prompt, error) {
	return m.mcpSession(sessionID).ListPrompts(ctx)
}

func (m *Manager) GetPrompt(ctx context.Context, sessionID, name string, arguments map[string]string) (*mcp.PromptResult, error) {
	return m.mcpSession(sessionID).GetPrompt(ctx, name, arguments)
}

func (m *Manager) ReadUIResource(ctx context.Context, sessionID, uri string) (*mcp.UIResource, error) {
	return m.mcpSession(sessionID).ReadResource(ctx, uri)
}

// ConfirmTool resolves a pending confirmation request on sessionID's
// inbox (spec.md §4.9 "confirm_tool on the inbox").
func (m *Manager) ConfirmTool(sessionID, requestID string, decision convo.ConfirmationDecision) (toolName string, allowed bool, ok bool) {
	return m.policy.Confirm(sessionID, requestID, decision)
}

// Inbox lists sessionID's pending confirmation requests.
func (m *Manager) Inbox(sessionID string) []convo.ConfirmationRequest {
	return m.policy.Inbox(sessionID)
}

// BeginTurn claims sessionID's turn lock, failing with ErrTurnInFlight if
// a turn is already active, per spec.md §3: "a session has exactly one
// active turn at a time; concurrent turn requests fail".
func (m *Manager) BeginTurn(sessionID string) error {
	return m.locker.TryLock(sessionID)
}

// EndTurn releases sessionID's turn lock.
func (m *Manager) EndTurn(sessionID string) {
	m.locker.Unlock(sessionID)
}
