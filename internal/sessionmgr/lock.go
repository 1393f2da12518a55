package sessionmgr

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTurnInFlight is returned by TurnLocker.TryLock when the session
// already has an active turn — spec.md §3's invariant "a session has
// exactly one active turn at a time; concurrent turn requests fail" is
// enforced as an immediate failure, not a queued wait.
var ErrTurnInFlight = errors.New("sessionmgr: a turn is already in flight for this session")

// sessionMutex pairs a mutex with whether it is currently held, grounded
// on the teacher's write_lock.go sessionMutex — the extra bool lets
// TryLock report contention without blocking on the mutex itself.
type sessionMutex struct {
	mu     sync.Mutex
	locked bool
}

// TurnLocker grants at most one active turn per session id. Unlike the
// teacher's SessionLocker (which the teacher uses to serialize storage
// writes and will retry/poll), this locker's TryLock never waits: a
// concurrent turn request on a session that already has one in flight
// fails immediately with ErrTurnInFlight, matching spec.md's "concurrent
// turn requests fail" rather than "queue".
type TurnLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionMutex
}

// NewTurnLocker builds an empty per-session turn lock table.
func NewTurnLocker() *TurnLocker {
	return &TurnLocker{locks: make(map[string]*sessionMutex)}
}

func (t *TurnLocker) entry(sessionID string) *sessionMutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.locks[sessionID]
	if !ok {
		m = &sessionMutex{}
		t.locks[sessionID] = m
	}
	return m
}

// TryLock claims the turn lock for sessionID, or returns ErrTurnInFlight
// if another turn already holds it.
func (t *TurnLocker) TryLock(sessionID string) error {
	m := t.entry(sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return ErrTurnInFlight
	}
	m.locked = true
	return nil
}

// Unlock releases the turn lock for sessionID. Unlocking a session with
// no active turn is a no-op.
func (t *TurnLocker) Unlock(sessionID string) {
	t.mu.Lock()
	m, ok := t.locks[sessionID]
	t.mu.Unlock()
	if !ok {
		return
	}
	m.mu.Lock()
	m.locked = false
	m.mu.Unlock()
}

// IsLocked reports whether sessionID currently has a turn in flight.
func (t *TurnLocker) IsLocked(sessionID string) bool {
	m := t.entry(sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// Drop removes a session's lock entry entirely, called on session
// deletion so the locks map does not grow without bound.
func (t *TurnLocker) Drop(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.locks, sessionID)
}

// WithTurnLock runs fn while holding sessionID's turn lock, releasing it
// unconditionally afterward. It returns ErrTurnInFlight without calling
// fn if the lock is already held, and propagates ctx cancellation only
// in the sense that fn is expected to observe ctx itself — the lock
// acquisition itself never blocks.
func (t *TurnLocker) WithTurnLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	if err := t.TryLock(sessionID); err != nil {
		return err
	}
	defer t.Unlock(sessionID)
	return fn(ctx)
}

// turnDeadline is a fallback ceiling on a single turn's wall-clock time;
// nothing in this module references it. The Turn Driver wires its own
// timeout policy through cancel.Token.
const turnDeadline = 10 * time.Minute
