package sessionmgr

import (
	"time"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// truncateMessages implements truncate(session, timestamp) (spec.md
// §4.9: "deletes messages with created ≥ timestamp; any tool_request
// not yet paired at the cut point is paired with Err(Truncated)").
func truncateMessages(messages []convo.Message, cut time.Time) []convo.Message {
	kept := make([]convo.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Created.Before(cut) {
			kept = append(kept, msg)
		}
	}
	return convo.PairSyntheticErrors(kept, convo.ErrorTruncated, "message truncated")
}

// Truncate deletes every message at or after cut from sessionID's
// transcript and persists the result, pairing any orphaned open
// tool_request with a synthetic Err(Truncated) tool_response.
func (m *Manager) Truncate(sessionID string, cut time.Time) error {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return err
	}
	session.Messages = truncateMessages(session.Messages, cut)
	return m.store.Update(m.ctx(), session)
}

// Clear removes every message from sessionID's transcript.
func (m *Manager) Clear(sessionID string) error {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return err
	}
	session.Messages = nil
	return m.store.Update(m.ctx(), session)
}
