package sessionmgr

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// MemoryStore is an in-process Store, grounded on the teacher's own
// MemoryStore (internal/sessions/memory.go): every Session is cloned on
// the way in and out (see cloneSession), so appending to or replacing a
// returned session's messages, extensions or recipe parameters never
// changes the stored copy.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*convo.Session
}

// NewMemoryStore builds an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*convo.Session)}
}

func (m *MemoryStore) Create(ctx context.Context, session *convo.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = session.CreatedAt
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*convo.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(session), nil
}

func (m *MemoryStore) Update(ctx context.Context, session *convo.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return ErrNotFound
	}
	session.UpdatedAt = time.Now()
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*convo.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*convo.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		out = append(out, cloneSession(session))
	}

	start := opts.Offset
	if start < 0 {
		start = 0
	}
	if start > len(out) {
		return []*convo.Session{}, nil
	}
	end := len(out)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return out[start:end], nil
}

// cloneSession copies session's Messages and Extensions slices and its
// recipe parameters so stored and returned values never share them. Each
// message's Content slice, and the parts in it, are not copied and stay
// shared between the clone and the original.
func cloneSession(session *convo.Session) *convo.Session {
	clone := *session
	if session.Messages != nil {
		clone.Messages = append([]convo.Message(nil), session.Messages...)
	}
	if session.Extensions != nil {
		clone.Extensions = append([]convo.ExtensionBinding(nil), session.Extensions...)
	}
	if session.Recipe != nil {
		recipe := *session.Recipe
		if session.Recipe.Parameters != nil {
			recipe.Parameters = make(map[string]string, len(session.Recipe.Parameters))
			for k, v := range session.Recipe.Parameters {
				recipe.Parameters[k] = v
			}
		}
		clone.Recipe = &recipe
	}
	return &clone
}
