// Package policy is the Permission Manager (spec.md §4.4): a process-wide,
// read-write-locked table of per-tool authorization policy, plus the
// per-session confirmation inbox the Turn Driver synthesizes a request
// into when a tool's policy is unresolved in an interactive mode.
package policy

import (
	"sync"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// Mode selects how an unresolved ("none") policy is treated for a tool.
type Mode string

const (
	// ModeInteractive means an unresolved policy synthesizes a
	// confirmation request rather than auto-allowing.
	ModeInteractive Mode = "approve"
	// ModeNonInteractive means an unresolved policy allows the call.
	ModeNonInteractive Mode = "auto"
	// ModeSmartApprove additionally allows when a tool carries the
	// smart_approve origin, without prompting.
	ModeSmartApprove Mode = "smart_approve"
)

// Manager holds the process-wide permission table (spec.md §5: "a
// process-wide map behind a read-write lock; policies change rarely,
// lookups are hot") plus each session's confirmation inbox.
type Manager struct {
	mu       sync.RWMutex
	policies map[string]convo.PermissionEntry

	inboxMu sync.Mutex
	inboxes map[string][]convo.ConfirmationRequest
}

// NewManager builds an empty Permission Manager.
func NewManager() *Manager {
	return &Manager{
		policies: make(map[string]convo.PermissionEntry),
		inboxes:  make(map[string][]convo.ConfirmationRequest),
	}
}

// SetPolicy installs or overwrites a tool's policy, recording origin as the
// reason it now holds that policy.
func (m *Manager) SetPolicy(toolName string, p convo.PermissionPolicy, origin convo.PermissionOrigin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[toolName] = convo.PermissionEntry{ToolName: toolName, Policy: p, Origin: origin}
}

// Lookup returns the policy on file for toolName, if any. A miss means no
// explicit entry exists; the caller resolves it via Resolve.
func (m *Manager) Lookup(toolName string) (convo.PermissionEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.policies[toolName]
	return e, ok
}

// Decision is the outcome of resolving a tool call against policy: either
// the call may proceed immediately, or a confirmation is required before
// it can.
type Decision int

const (
	// DecisionAllow means the call may proceed without prompting.
	DecisionAllow Decision = iota
	// DecisionDeny means the call is rejected outright.
	DecisionDeny
	// DecisionConfirm means a ConfirmationRequest has been queued and the
	// caller must await its resolution before proceeding.
	DecisionConfirm
)

// Resolve implements the policy lookup chain from spec.md §4.4:
// user_override → smart_approve_when_mode=smart_approve →
// ask_before_when_mode=approve → none. A "none" policy allows in
// ModeNonInteractive and requires confirmation in ModeInteractive.
func (m *Manager) Resolve(sessionID, toolName string, mode Mode) (Decision, *convo.ConfirmationRequest) {
	entry, ok := m.Lookup(toolName)
	if ok {
		switch entry.Policy {
		case convo.PolicyAlwaysAllow:
			return DecisionAllow, nil
		case convo.PolicyDeny:
			return DecisionDeny, nil
		case convo.PolicyAskBefore:
			if mode == ModeSmartApprove && entry.Origin == convo.OriginSmartApprove {
				return DecisionAllow, nil
			}
			req := m.enqueue(sessionID, toolName, convo.PrincipalTool)
			return DecisionConfirm, req
		}
	}

	if mode == ModeInteractive {
		req := m.enqueue(sessionID, toolName, convo.PrincipalTool)
		return DecisionConfirm, req
	}
	return DecisionAllow, nil
}

func (m *Manager) enqueue(sessionID, toolName string, principal convo.ConfirmationPrincipal) *convo.ConfirmationRequest {
	req := convo.ConfirmationRequest{
		ID:            uuid.NewString(),
		PrincipalType: principal,
		ToolName:      toolName,
		SessionID:     sessionID,
	}
	m.inboxMu.Lock()
	m.inboxes[sessionID] = append(m.inboxes[sessionID], req)
	m.inboxMu.Unlock()
	return &req
}

// Inbox returns the pending confirmation requests for sessionID, oldest
// first.
func (m *Manager) Inbox(sessionID string) []convo.ConfirmationRequest {
	m.inboxMu.Lock()
	defer m.inboxMu.Unlock()
	out := make([]convo.ConfirmationRequest, len(m.inboxes[sessionID]))
	copy(out, m.inboxes[sessionID])
	return out
}

// Confirm resolves a pending confirmation request by id, per spec.md
// §4.4's decision set. always_allow persists the tool's policy;
// allow_once/deny_once affect only this call. Returns the tool name the
// request was for and whether the call may proceed, or ok=false if no such
// pending request exists.
func (m *Manager) Confirm(sessionID, requestID string, decision convo.ConfirmationDecision) (toolName string, allowed bool, ok bool) {
	m.inboxMu.Lock()
	pending := m.inboxes[sessionID]
	idx := -1
	for i, req := range pending {
		if req.ID == requestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.inboxMu.Unlock()
		return "", false, false
	}
	toolName = pending[idx].ToolName
	m.inboxes[sessionID] = append(pending[:idx], pending[idx+1:]...)
	m.inboxMu.Unlock()

	switch decision {
	case convo.DecisionAlwaysAllow:
		m.SetPolicy(toolName, convo.PolicyAlwaysAllow, convo.OriginUser)
		return toolName, true, true
	case convo.DecisionAllowOnce:
		return toolName, true, true
	case convo.DecisionDenyOnce:
		return toolName, false, true
	default:
		return toolName, false, true
	}
}

// DropSession discards sessionID's confirmation inbox, called when a
// session is deleted.
func (m *Manager) DropSession(sessionID string) {
	m.inboxMu.Lock()
	delete(m.inboxes, sessionID)
	m.inboxMu.Unlock()
}
