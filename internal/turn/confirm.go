package turn

import (
	"sync"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// confirmWaiters lets the dispatch step block on a confirmation request's
// resolution without polling: a waiter channel is registered when the
// request is synthesized, and whatever resolves the request (typically
// the transport layer handling a client's confirm_tool call) delivers the
// decision through ResolveConfirmation, which looks the channel up and
// signals it. There is no teacher precedent for this exact mechanism —
// the teacher's ApprovalChecker (internal/agent/approval.go) is evaluated
// synchronously against a static policy, never suspended awaiting an
// external client response — so this is authored directly from spec.md
// §4.4's "awaits resolution" wording, using the same
// sync.Mutex-guarded-map-of-channels shape the teacher uses elsewhere
// (e.g. internal/agent/steering.go's queue).
type confirmWaiters struct {
	mu      sync.Mutex
	pending map[string]chan convo.ConfirmationDecision
}

func newConfirmWaiters() *confirmWaiters {
	return &confirmWaiters{pending: make(map[string]chan convo.ConfirmationDecision)}
}

func (c *confirmWaiters) register(requestID string) chan convo.ConfirmationDecision {
	ch := make(chan convo.ConfirmationDecision, 1)
	c.mu.Lock()
	c.pending[requestID] = ch
	c.mu.Unlock()
	return ch
}

func (c *confirmWaiters) resolve(requestID string, decision convo.ConfirmationDecision) bool {
	c.mu.Lock()
	ch, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	ch <- decision
	return true
}

func (c *confirmWaiters) forget(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}
