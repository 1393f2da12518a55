package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/sessionmgr"
)

// handleSessionsList answers "GET /sessions → Session[s]" (spec.md §6),
// paginated the way the teacher's sessions.ListOptions is.
func (s *Server) handleSessionsList(w http.ResponseWriter, r *http.Request) {
	opts := sessionmgr.ListOptions{}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		opts.Offset = offset
	}
	list, err := s.sessions.List(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createSessionRequest struct {
	Name         string            `json:"name"`
	WorkingDir   string            `json:"working_dir"`
	ProviderName string            `json:"provider_name"`
	ModelConfig  convo.ModelConfig `json:"model_config"`
}

// handleSessionsCreate answers "POST /sessions → Session".
func (s *Server) handleSessionsCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	session, err := s.sessions.Create(req.Name, req.WorkingDir, req.ProviderName, req.ModelConfig)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.applyDefaultAutopilotRules(session.ID)
	writeJSON(w, http.StatusOK, session)
}

// handleSessionGet answers "GET /sessions/{id} → Session".
func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(urlParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleSessionDelete answers "DELETE /sessions/{id} → 200".
func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(urlParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleSessionClear answers "POST /sessions/{id}/clear → 200".
func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(urlParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type forkSessionRequest struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Truncate  bool       `json:"truncate"`
	Copy      bool       `json:"copy"`
}

// handleSessionFork answers "POST /sessions/{id}/fork → {session_id}".
func (s *Server) handleSessionFork(w http.ResponseWriter, r *http.Request) {
	var req forkSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
	}
	newID, err := s.sessions.Fork(urlParam(r, "id"), sessionmgr.ForkOptions{
		Timestamp: req.Timestamp,
		Truncate:  req.Truncate,
		Copy:      req.Copy,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": newID})
}

// handleSessionExport answers "GET /sessions/{id}/export → serialized
// transcript" with the session's persisted transcript JSON directly
// (spec.md §6's persisted transcript format), grounded on
// sessionmgr.Manager.Export.
func (s *Server) handleSessionExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.sessions.Export(urlParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleSessionMessages answers "POST /sessions/{id}/messages → 200",
// appending a client-supplied Message (e.g. an out-of-band system note)
// to the transcript without running a turn.
func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	var msg convo.Message
	if err := decodeJSON(r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if _, err := s.sessions.AppendMessages(urlParam(r, "id"), msg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleSessionRecipe answers "POST /sessions/{id}/recipe → Recipe" with
// the session's currently bound recipe, if any.
func (s *Server) handleSessionRecipe(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(urlParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if session.Recipe == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, session.Recipe)
}
