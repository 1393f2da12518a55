package sessionmgr

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// recordType distinguishes the two kinds of line a JSONL export contains,
// grounded on the teacher's ImportFormat (internal/sessions/import.go),
// adapted from a mixed session/message store to convo.Session's
// self-contained transcript: each exported session is a single record
// carrying its own messages, so there is no message-record pass.
type recordType string

const recordTypeSession recordType = "session"

// exportRecord is one line of a JSONL export.
type exportRecord struct {
	Type    recordType    `json:"type"`
	Session *convo.Session `json:"session,omitempty"`
}

// ExportToJSONL writes every session in the store to w as newline-delimited
// JSON, one exportRecord per line, grounded on the teacher's
// ExportToJSONL (internal/sessions/import.go).
func ExportToJSONL(ctx context.Context, store Store, w io.Writer) error {
	sessions, err := store.List(ctx, ListOptions{})
	if err != nil {
		return fmt.Errorf("sessionmgr: export list: %w", err)
	}
	enc := json.NewEncoder(w)
	for _, session := range sessions {
		if err := enc.Encode(exportRecord{Type: recordTypeSession, Session: session}); err != nil {
			return fmt.Errorf("sessionmgr: export encode session %s: %w", session.ID, err)
		}
	}
	return nil
}

// Export serializes a single session's transcript as JSON (spec.md §6:
// "GET /sessions/{id}/export → serialized transcript").
func (m *Manager) Export(sessionID string) ([]byte, error) {
	session, err := m.store.Get(m.ctx(), sessionID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(session)
}

// ImportOptions controls Import, grounded on the teacher's ImportOptions.
type ImportOptions struct {
	DryRun         bool
	SkipDuplicates bool
	PreserveIDs    bool
}

// ImportResult summarizes an Import call, grounded on the teacher's
// ImportResult.
type ImportResult struct {
	SessionsImported int
	SessionsSkipped  int
	Errors           []string
	Duration         time.Duration
	SessionIDMap     map[string]string
}

// Import reads a JSONL stream of exportRecords and creates a session per
// record, grounded on the teacher's Importer.ImportFromReader. Unlike the
// teacher's two-pass (sessions then messages) import, a convo.Session
// record is already self-contained, so this is a single pass.
func (m *Manager) Import(r io.Reader, opts ImportOptions) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{SessionIDMap: make(map[string]string)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec exportRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("unmarshal record: %v", err))
			continue
		}
		if rec.Type != recordTypeSession || rec.Session == nil {
			continue
		}

		session := rec.Session
		originalID := session.ID
		if !opts.PreserveIDs || originalID == "" {
			session.ID = uuid.NewString()
		}

		if opts.SkipDuplicates && originalID != "" {
			if _, err := m.store.Get(m.ctx(), originalID); err == nil {
				result.SessionsSkipped++
				continue
			}
		}

		if opts.DryRun {
			result.SessionsImported++
			result.SessionIDMap[originalID] = session.ID
			continue
		}

		if err := m.store.Create(m.ctx(), session); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("create session %s: %v", originalID, err))
			continue
		}
		result.SessionsImported++
		result.SessionIDMap[originalID] = session.ID
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("sessionmgr: import scan: %w", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}
