package transport

import (
	"net/http"

	"github.com/haasonsaas/agentcore/internal/convo"
)

type agentStartRequest struct {
	WorkingDir         string            `json:"working_dir"`
	Recipe             *convo.Recipe     `json:"recipe,omitempty"`
	RecipeID           string            `json:"recipe_id,omitempty"`
	RecipeDeeplink     string            `json:"recipe_deeplink,omitempty"`
	ExtensionOverrides []string          `json:"extension_overrides,omitempty"`
	ProviderName       string            `json:"provider_name"`
	ModelConfig        convo.ModelConfig `json:"model_config"`
}

// handleAgentStart answers "POST /agent/start → Session" (spec.md §6):
// resolves a session-scoped recipe deep-link is an external collaborator's
// job (§4.9's "recipe resolution, deep-link parsing... sit outside this
// core"); this handler accepts an already-resolved recipe and otherwise
// just creates the session.
func (s *Server) handleAgentStart(w http.ResponseWriter, r *http.Request) {
	var req agentStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	session, err := s.sessions.Create("", req.WorkingDir, req.ProviderName, req.ModelConfig)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.applyDefaultAutopilotRules(session.ID)
	if req.Recipe != nil {
		session.Recipe = req.Recipe
	}
	writeJSON(w, http.StatusOK, session)
}

type agentResumeRequest struct {
	SessionID             string `json:"session_id"`
	LoadModelAndExtensions bool   `json:"load_model_and_extensions"`
}

// handleAgentResume answers "POST /agent/resume → Session".
func (s *Server) handleAgentResume(w http.ResponseWriter, r *http.Request) {
	var req agentResumeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	session, err := s.sessions.Get(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if req.LoadModelAndExtensions {
		if _, err := s.sessions.Restart(req.SessionID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, session)
}

type sessionIDRequest struct {
	SessionID string `json:"session_id"`
}

// handleAgentStop answers "POST /agent/stop → 200" once it has checked that
// the session exists (404 otherwise). There is no cancel-token registry in
// this server, so stop neither cancels an in-flight turn nor blocks a new
// one; an in-flight turn is cancelled through its own cancel token (for
// /reply, the request's context).
func (s *Server) handleAgentStop(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if _, err := s.sessions.Get(req.SessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type addExtensionRequest struct {
	SessionID string                  `json:"session_id"`
	Config    convo.ExtensionBinding `json:"config"`
}

// handleAgentAddExtension answers "POST /agent/add_extension → 200".
func (s *Server) handleAgentAddExtension(w http.ResponseWriter, r *http.Request) {
	var req addExtensionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.sessions.AddExtension(req.SessionID, req.Config); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type removeExtensionRequest struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// handleAgentRemoveExtension answers "POST /agent/remove_extension → 200".
func (s *Server) handleAgentRemoveExtension(w http.ResponseWriter, r *http.Request) {
	var req removeExtensionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.sessions.RemoveExtension(req.SessionID, req.Name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type updateProviderRequest struct {
	SessionID     string            `json:"session_id"`
	Provider      string            `json:"provider"`
	Model         string            `json:"model,omitempty"`
	ContextLimit  *int              `json:"context_limit,omitempty"`
	RequestParams convo.ModelConfig `json:"request_params,omitempty"`
}

// handleAgentUpdateProvider answers "POST /agent/update_provider → 200".
func (s *Server) handleAgentUpdateProvider(w http.ResponseWriter, r *http.Request) {
	var req updateProviderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	model := req.RequestParams
	if req.Model != "" {
		model.ModelName = req.Model
	}
	if req.ContextLimit != nil {
		model.ContextLimit = req.ContextLimit
	}
	if err := s.sessions.UpdateProvider(req.SessionID, req.Provider, model); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleAgentTools answers "GET /agent/tools?session_id → [ToolInfo]".
func (s *Server) handleAgentTools(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	mcpSession := s.sessions.MCPSession(sessionID)
	tools, err := mcpSession.ListTools(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

// handleAgentPrompts answers "GET /agent/prompts?session_id → {group:
// [Prompt]}", grouping by the extension name each prompt came from
// (mcp.Prompt.ExtensionName), the closest this core has to the "group"
// spec.md's table names.
func (s *Server) handleAgentPrompts(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	prompts, err := s.sessions.ListPrompts(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	grouped := make(map[string][]any)
	for _, p := range prompts {
		grouped[p.ExtensionName] = append(grouped[p.ExtensionName], p)
	}
	writeJSON(w, http.StatusOK, grouped)
}

type getPromptRequest struct {
	SessionID string            `json:"session_id"`
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

// handleAgentPromptsGet answers "POST /agent/prompts/get → PromptResult".
func (s *Server) handleAgentPromptsGet(w http.ResponseWriter, r *http.Request) {
	var req getPromptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	result, err := s.sessions.GetPrompt(r.Context(), req.SessionID, req.Name, req.Arguments)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// extensionLoadResult reports one extension's outcome from a restart,
// there being no richer per-extension error surface in
// sessionmgr.Manager.Restart to draw from yet (it either rebuilds the
// whole mcp.Session or returns a single error).
type extensionLoadResult struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
}

// handleAgentRestart answers "POST /agent/restart → [ExtensionLoadResult]"
// (spec.md §6), grounded on sessionmgr.Manager.Restart ("re-attach
// extensions and re-hydrate provider", spec.md §4.9).
func (s *Server) handleAgentRestart(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	session, err := s.sessions.Get(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if _, err := s.sessions.Restart(req.SessionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	results := make([]extensionLoadResult, 0, len(session.Extensions))
	for _, ext := range session.Extensions {
		results = append(results, extensionLoadResult{Name: ext.Name, OK: true})
	}
	writeJSON(w, http.StatusOK, results)
}
