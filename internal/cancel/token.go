// Package cancel implements cooperative cancellation and timeout handling
// for turns and tool dispatch (spec.md §4.11, C11): a Token wraps a
// context.CancelFunc with a reason so callers downstream of a cancellation
// can tell a user's explicit stop apart from a client disconnect or a
// deadline expiring, and react accordingly (synthesizing tool_response
// errors vs. simply tearing down).
package cancel

import (
	"context"
	"sync"
	"time"
)

// Reason identifies why a Token was cancelled.
type Reason string

const (
	ReasonExplicit   Reason = "explicit"
	ReasonDisconnect Reason = "disconnect"
	ReasonTimeout    Reason = "timeout"
)

// Token is a single cancellable unit of work — one turn, or one tool
// dispatch within a turn. Cancel is idempotent; the first call's reason
// wins.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	reason Reason
	done   bool
}

// New derives a Token from parent with no deadline. Call Stop when the
// unit of work the Token guards completes normally, to release resources
// tied to the derived context.
func New(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// WithTimeout derives a Token from parent that cancels itself with
// ReasonTimeout after d elapses.
func WithTimeout(parent context.Context, d time.Duration) *Token {
	ctx, cancel := context.WithTimeout(parent, d)
	t := &Token{ctx: ctx, cancel: cancel}
	go t.watchDeadline()
	return t
}

func (t *Token) watchDeadline() {
	<-t.ctx.Done()
	if t.ctx.Err() == context.DeadlineExceeded {
		t.mu.Lock()
		if !t.done {
			t.done = true
			t.reason = ReasonTimeout
		}
		t.mu.Unlock()
	}
}

// Context returns the context a caller should thread through provider
// calls and tool dispatch.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Cancel marks the token cancelled for reason and cancels its context.
// Calling Cancel more than once is a no-op after the first call.
func (t *Token) Cancel(reason Reason) {
	t.mu.Lock()
	if !t.done {
		t.done = true
		t.reason = reason
	}
	t.mu.Unlock()
	t.cancel()
}

// Stop releases the Token's context resources without recording a
// cancellation reason, for the normal-completion path.
func (t *Token) Stop() {
	t.cancel()
}

// Cancelled reports whether the token has been cancelled, and if so why.
func (t *Token) Cancelled() (Reason, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		return "", false
	}
	return t.reason, true
}

// Err returns the token's context error, nil if it hasn't been cancelled.
func (t *Token) Err() error {
	return t.ctx.Err()
}
