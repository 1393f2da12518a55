package transport

import (
	"net/http"
	"time"
)

// handleStatus answers spec.md §6's "GET /status → 200 when ready": no
// body is promised by the contract, so this reports the process uptime as
// a convenience the teacher's own handleHealthz (internal/gateway/
// http_server.go) offers in the same spirit.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": int(time.Since(s.startTime).Seconds()),
	})
}
