package policy

import (
	"testing"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestResolveAlwaysAllow(t *testing.T) {
	m := NewManager()
	m.SetPolicy("echo", convo.PolicyAlwaysAllow, convo.OriginUser)

	d, req := m.Resolve("s1", "echo", ModeInteractive)
	if d != DecisionAllow || req != nil {
		t.Fatalf("expected allow with no confirmation request, got %v %v", d, req)
	}
}

func TestResolveDeny(t *testing.T) {
	m := NewManager()
	m.SetPolicy("dangerous", convo.PolicyDeny, convo.OriginUser)

	d, _ := m.Resolve("s1", "dangerous", ModeNonInteractive)
	if d != DecisionDeny {
		t.Fatalf("expected deny, got %v", d)
	}
}

func TestResolveAskBeforeQueuesConfirmation(t *testing.T) {
	m := NewManager()
	m.SetPolicy("dangerous", convo.PolicyAskBefore, convo.OriginUser)

	d, req := m.Resolve("s1", "dangerous", ModeInteractive)
	if d != DecisionConfirm || req == nil {
		t.Fatalf("expected confirm with a request, got %v %v", d, req)
	}
	inbox := m.Inbox("s1")
	if len(inbox) != 1 || inbox[0].ID != req.ID {
		t.Fatalf("expected request in inbox, got %+v", inbox)
	}
}

func TestResolveNoneInteractiveAsksFirstNonInteractiveAllows(t *testing.T) {
	m := NewManager()

	d, req := m.Resolve("s1", "unset", ModeInteractive)
	if d != DecisionConfirm || req == nil {
		t.Fatalf("expected confirm for unset tool in interactive mode, got %v", d)
	}

	d2, req2 := m.Resolve("s1", "unset2", ModeNonInteractive)
	if d2 != DecisionAllow || req2 != nil {
		t.Fatalf("expected allow for unset tool in non-interactive mode, got %v", d2)
	}
}

func TestConfirmAlwaysAllowPersistsPolicy(t *testing.T) {
	m := NewManager()
	_, req := m.Resolve("s1", "risky", ModeInteractive)

	tool, allowed, ok := m.Confirm("s1", req.ID, convo.DecisionAlwaysAllow)
	if !ok || !allowed || tool != "risky" {
		t.Fatalf("expected confirm success, got tool=%q allowed=%v ok=%v", tool, allowed, ok)
	}

	entry, found := m.Lookup("risky")
	if !found || entry.Policy != convo.PolicyAlwaysAllow {
		t.Fatalf("expected persisted always_allow policy, got %+v ok=%v", entry, found)
	}
	if len(m.Inbox("s1")) != 0 {
		t.Fatalf("expected inbox drained after confirm")
	}
}

func TestConfirmDenyOnceDoesNotPersist(t *testing.T) {
	m := NewManager()
	_, req := m.Resolve("s1", "risky", ModeInteractive)

	_, allowed, ok := m.Confirm("s1", req.ID, convo.DecisionDenyOnce)
	if !ok || allowed {
		t.Fatalf("expected deny once, got allowed=%v ok=%v", allowed, ok)
	}
	if _, found := m.Lookup("risky"); found {
		t.Fatalf("deny_once must not persist a policy")
	}
}

func TestConfirmUnknownRequestFails(t *testing.T) {
	m := NewManager()
	_, _, ok := m.Confirm("s1", "missing-id", convo.DecisionAllowOnce)
	if ok {
		t.Fatal("expected confirm of unknown request id to fail")
	}
}

func TestDropSessionClearsInbox(t *testing.T) {
	m := NewManager()
	m.Resolve("s1", "tool", ModeInteractive)
	m.DropSession("s1")
	if len(m.Inbox("s1")) != 0 {
		t.Fatal("expected inbox cleared")
	}
}
