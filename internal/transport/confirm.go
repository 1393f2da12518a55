package transport

import (
	"net/http"

	"github.com/haasonsaas/agentcore/internal/convo"
)

type toolConfirmationRequest struct {
	ID            string                      `json:"id"`
	PrincipalType convo.ConfirmationPrincipal `json:"principal_type"`
	Action        convo.ConfirmationDecision  `json:"action"`
	SessionID     string                      `json:"session_id"`
}

// handleToolConfirmation answers "POST /action-required/tool-confirmation
// → 200" (spec.md §6): a client resolves a pending confirmation sitting in
// a session's inbox, the same path sessionmgr.Manager.ConfirmTool and the
// Turn Driver's dispatch step both read from.
func (s *Server) handleToolConfirmation(w http.ResponseWriter, r *http.Request) {
	var req toolConfirmationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	switch req.Action {
	case convo.DecisionAlwaysAllow, convo.DecisionAllowOnce, convo.DecisionDenyOnce:
	default:
		writeError(w, http.StatusBadRequest, "action must be always_allow, allow_once, or deny_once")
		return
	}

	_, _, ok := s.driver.ResolveConfirmation(req.SessionID, req.ID, req.Action)
	if !ok {
		writeError(w, http.StatusNotFound, "no pending confirmation with that id")
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleInbox answers "GET /sessions/{id}/confirmations → [ConfirmationRequest]",
// the pending side of the same confirmation inbox.
func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Inbox(urlParam(r, "id")))
}
