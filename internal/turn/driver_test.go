package turn

import (
	"context"
	"testing"
	"time"

	"github.com/haasonsaas/agentcore/internal/cancel"
	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/mcp"
	"github.com/haasonsaas/agentcore/internal/policy"
	"github.com/haasonsaas/agentcore/internal/providers"
	"github.com/haasonsaas/agentcore/internal/sessionmgr"
)

// fakeProvider lets a test script exactly what each leg of a turn
// produces, mirroring the teacher's loopTestProvider (internal/agent/
// loop_test.go): one []providers.StreamEvent (or one one-shot message)
// per call, consumed in order.
type fakeProvider struct {
	legs    [][]providers.StreamEvent
	call    int
	oneShot []convo.Message // when non-streaming, returned in call order
}

func (p *fakeProvider) Metadata() providers.Metadata {
	return providers.Metadata{Name: "fake", SupportsStreaming: true, SupportsTools: true}
}
func (p *fakeProvider) Models() []providers.ModelInfo { return nil }
func (p *fakeProvider) SupportsStreaming(model string) bool { return true }

func (p *fakeProvider) CompleteWithModel(ctx context.Context, req providers.Request) (convo.Message, providers.Usage, error) {
	call := p.call
	p.call++
	if call < len(p.oneShot) {
		return p.oneShot[call], providers.Usage{InputTokens: 1, OutputTokens: 1}, nil
	}
	return convo.Message{Role: convo.RoleAssistant}, providers.Usage{}, nil
}

func (p *fakeProvider) Stream(ctx context.Context, req providers.Request) (<-chan providers.StreamEvent, error) {
	call := p.call
	p.call++
	ch := make(chan providers.StreamEvent, 10)
	go func() {
		defer close(ch)
		if call < len(p.legs) {
			for _, ev := range p.legs[call] {
				ch <- ev
			}
		}
	}()
	return ch, nil
}

func newTestDriver(t *testing.T, provider providers.LLMProvider) (*Driver, *sessionmgr.Manager, string) {
	t.Helper()
	store := sessionmgr.NewMemoryStore()
	mcpMgr := mcp.NewManager()
	policyMgr := policy.NewManager()
	registry := providers.NewRegistry()
	registry.Register("fake", func(config map[string]string) (providers.LLMProvider, error) {
		return provider, nil
	})

	sessions := sessionmgr.NewManager(store, mcpMgr, policyMgr, registry, 10)
	session, err := sessions.Create("test", "/tmp", "fake", convo.ModelConfig{ModelName: "fake-model"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	driver := NewDriver(sessions, Config{Mode: policy.ModeNonInteractive})
	return driver, sessions, session.ID
}

func userMessage(text string) convo.Message {
	return convo.Message{Role: convo.RoleUser, Content: []convo.Part{convo.NewText(text)}}
}

func drain(t *testing.T, events <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out draining events, got %d so far", len(out))
		}
	}
}

func TestRunEndsTurnWithNoToolRequests(t *testing.T) {
	provider := &fakeProvider{legs: [][]providers.StreamEvent{
		{
			{Delta: &convo.Part{Type: convo.PartText, Text: "hi"}},
			{Message: &convo.Message{Role: convo.RoleAssistant, Content: []convo.Part{convo.NewText("hi")}}},
		},
	}}
	driver, sessions, sessionID := newTestDriver(t, provider)

	events, err := driver.Run(context.Background(), Input{SessionID: sessionID, UserMessage: userMessage("hello"), Stream: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := drain(t, events, 2*time.Second)

	if len(got) < 2 {
		t.Fatalf("expected at least a delta and end event, got %d events", len(got))
	}
	last := got[len(got)-1]
	if last.Kind != EventEnd {
		t.Fatalf("expected terminal event_end, got %q", last.Kind)
	}

	session, err := sessions.Get(sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(session.Messages) != 2 {
		t.Fatalf("expected user+assistant messages persisted, got %d", len(session.Messages))
	}
}

func TestRunDispatchesToolRequestThenEndsTurn(t *testing.T) {
	toolCallID := "call-1"
	provider := &fakeProvider{legs: [][]providers.StreamEvent{
		{
			{Message: &convo.Message{
				Role: convo.RoleAssistant,
				Content: []convo.Part{
					convo.NewToolRequest(toolCallID, convo.ToolCall{Name: "echo", Arguments: map[string]any{"text": "hi"}}),
				},
			}},
		},
		{
			{Message: &convo.Message{Role: convo.RoleAssistant, Content: []convo.Part{convo.NewText("done")}}},
		},
	}}
	driver, sessions, sessionID := newTestDriver(t, provider)

	events, err := driver.Run(context.Background(), Input{SessionID: sessionID, UserMessage: userMessage("run echo"), Stream: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := drain(t, events, 2*time.Second)

	var sawCall, sawResult bool
	for _, ev := range got {
		switch ev.Kind {
		case EventToolCall:
			sawCall = true
		case EventToolResult:
			sawResult = true
		}
	}
	if !sawCall || !sawResult {
		t.Fatalf("expected tool_call and tool_result events, got %+v", got)
	}
	last := got[len(got)-1]
	if last.Kind != EventEnd {
		t.Fatalf("expected terminal event_end after tool dispatch, got %q", last.Kind)
	}

	session, err := sessions.Get(sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if open := convo.OpenToolRequests(session.Messages); len(open) != 0 {
		t.Fatalf("expected every tool_request paired, got open requests %v", open)
	}
}

func TestRunRejectsConcurrentTurn(t *testing.T) {
	provider := &fakeProvider{legs: [][]providers.StreamEvent{{
		{Message: &convo.Message{Role: convo.RoleAssistant, Content: []convo.Part{convo.NewText("ok")}}},
	}}}
	driver, sessions, sessionID := newTestDriver(t, provider)

	if err := sessions.TurnLocker().TryLock(sessionID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer sessions.TurnLocker().Unlock(sessionID)

	_, err := driver.Run(context.Background(), Input{SessionID: sessionID, UserMessage: userMessage("hi"), Stream: true})
	if err == nil {
		t.Fatal("expected ErrTurnInFlight for a session with an active turn")
	}
}

func TestRunCancellationPairsOpenToolRequests(t *testing.T) {
	block := make(chan struct{})
	driver, sessions, sessionID := newTestDriver(t, &blockingProvider{unblock: block})

	token := cancel.New(context.Background())
	events, err := driver.Run(context.Background(), Input{SessionID: sessionID, UserMessage: userMessage("hi"), Stream: true, Token: token})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	token.Cancel(cancel.ReasonExplicit)
	got := drain(t, events, 2*time.Second)
	close(block)

	if len(got) == 0 || got[len(got)-1].Kind != EventCancelled {
		t.Fatalf("expected terminal cancelled event, got %+v", got)
	}

	session, err := sessions.Get(sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if open := convo.OpenToolRequests(session.Messages); len(open) != 0 {
		t.Fatalf("expected no dangling open tool_requests after cancellation, got %v", open)
	}
}

// blockingProvider never completes its stream until unblock is closed,
// used to exercise the cancellation path deterministically.
type blockingProvider struct {
	unblock chan struct{}
}

func (p *blockingProvider) Metadata() providers.Metadata {
	return providers.Metadata{Name: "blocking", SupportsStreaming: true}
}
func (p *blockingProvider) Models() []providers.ModelInfo      { return nil }
func (p *blockingProvider) SupportsStreaming(string) bool      { return true }
func (p *blockingProvider) CompleteWithModel(ctx context.Context, req providers.Request) (convo.Message, providers.Usage, error) {
	<-p.unblock
	return convo.Message{Role: convo.RoleAssistant}, providers.Usage{}, nil
}
func (p *blockingProvider) Stream(ctx context.Context, req providers.Request) (<-chan providers.StreamEvent, error) {
	ch := make(chan providers.StreamEvent)
	go func() {
		defer close(ch)
		<-p.unblock
	}()
	return ch, nil
}
