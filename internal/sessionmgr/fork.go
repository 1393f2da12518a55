package sessionmgr

import (
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// ForkOptions controls the fork operation (spec.md §4.9: "fork(session,
// timestamp?, truncate, copy) creates a new session whose transcript is
// the source session's messages strictly before timestamp (or the whole
// transcript if timestamp is null), optionally copying auxiliary
// metadata; it never mutates the source").
//
// Despite its name, Truncate here only governs whether the cut applies
// (a nil Timestamp already means "copy everything"); it is kept as a
// named field rather than inferred from Timestamp == nil so a caller can
// explicitly request "copy everything" without a sentinel time value.
type ForkOptions struct {
	Timestamp *time.Time
	Truncate  bool
	Copy      bool
}

// forkSession builds the new session's transcript and metadata from
// source, honoring opts, without mutating source in any way. It does
// not assign an ID, CreatedAt, or UpdatedAt — the caller's Store.Create
// call does that.
func forkSession(source *convo.Session, opts ForkOptions) *convo.Session {
	messages := source.Messages
	if opts.Truncate && opts.Timestamp != nil {
		cut := *opts.Timestamp
		kept := make([]convo.Message, 0, len(source.Messages))
		for _, msg := range source.Messages {
			if msg.Created.Before(cut) {
				kept = append(kept, msg)
			}
		}
		messages = kept
	}

	forked := &convo.Session{
		Name:         source.Name + " (fork)",
		WorkingDir:   source.WorkingDir,
		ProviderName: source.ProviderName,
		ModelConfig:  source.ModelConfig,
		Messages:     append([]convo.Message(nil), messages...),
	}

	if opts.Copy {
		if source.Recipe != nil {
			recipe := *source.Recipe
			if source.Recipe.Parameters != nil {
				recipe.Parameters = make(map[string]string, len(source.Recipe.Parameters))
				for k, v := range source.Recipe.Parameters {
					recipe.Parameters[k] = v
				}
			}
			forked.Recipe = &recipe
		}
		forked.Extensions = append([]convo.ExtensionBinding(nil), source.Extensions...)
	}

	return forked
}

// Fork creates a new session from sessionID per opts, never mutating the
// source session, and returns the new session's id.
func (m *Manager) Fork(sessionID string, opts ForkOptions) (string, error) {
	source, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return "", err
	}

	forked := forkSession(source, opts)
	forked.ID = uuid.NewString()
	if err := m.store.Create(m.ctx(), forked); err != nil {
		return "", err
	}
	return forked.ID, nil
}
