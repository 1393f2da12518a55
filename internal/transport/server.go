// Package transport is the server-side API surface (spec.md §6 EXTERNAL
// INTERFACES): an HTTP control plane, an SSE `/reply` turn stream, and a
// JSON-RPC IDE binding reachable over both HTTP POST and a WebSocket
// upgrade on the same path. None of the core (internal/turn,
// internal/sessionmgr, internal/policy, ...) imports this package — the
// core defines the contract, transport is one concrete realization of it,
// mirroring the teacher's internal/gateway sitting on top of (never
// underneath) its session/auth/channel core.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/haasonsaas/agentcore/internal/autopilot"
	"github.com/haasonsaas/agentcore/internal/config"
	"github.com/haasonsaas/agentcore/internal/observability"
	"github.com/haasonsaas/agentcore/internal/sessionmgr"
	"github.com/haasonsaas/agentcore/internal/turn"
)

// Server owns the HTTP listener and routes every endpoint spec.md §6 names
// to the Session Manager and Turn Driver. Grounded on the teacher's
// gateway.Server.startHTTPServer/stopHTTPServer (internal/gateway/
// http_server.go): a chi.Router in place of the teacher's stdlib
// http.NewServeMux, net.Listen first so the bind error surfaces
// synchronously, then Serve in a goroutine.
type Server struct {
	cfg           config.ServerConfig
	sessions      *sessionmgr.Manager
	driver        *turn.Driver
	metrics       *observability.Metrics
	logger        *slog.Logger
	autopilotRules []autopilot.Rule

	httpServer *http.Server
	listener   net.Listener
	startTime  time.Time
}

// NewServer builds a Server over sessions/driver, not yet listening.
// autopilotRules are installed on every session this Server creates
// (spec.md §4.6's provider-swap rules, configured process-wide but
// evaluated per-session by the Turn Driver).
func NewServer(cfg config.ServerConfig, sessions *sessionmgr.Manager, driver *turn.Driver, metrics *observability.Metrics, logger *slog.Logger, autopilotRules []autopilot.Rule) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, sessions: sessions, driver: driver, metrics: metrics, logger: logger, autopilotRules: autopilotRules}
}

// applyDefaultAutopilotRules installs this Server's configured autopilot
// rules on a freshly created session, called by every handler that can
// create one (handleAgentStart, handleSessionsCreate, newSession).
func (s *Server) applyDefaultAutopilotRules(sessionID string) {
	for _, rule := range s.autopilotRules {
		s.driver.AddAutopilotRule(sessionID, rule)
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/status", s.handleStatus)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	authed := r.With(secretKeyMiddleware(s.cfg.SecretKey))

	authed.Route("/agent", func(r chi.Router) {
		r.Post("/start", s.handleAgentStart)
		r.Post("/resume", s.handleAgentResume)
		r.Post("/stop", s.handleAgentStop)
		r.Post("/add_extension", s.handleAgentAddExtension)
		r.Post("/remove_extension", s.handleAgentRemoveExtension)
		r.Post("/update_provider", s.handleAgentUpdateProvider)
		r.Get("/tools", s.handleAgentTools)
		r.Get("/prompts", s.handleAgentPrompts)
		r.Post("/prompts/get", s.handleAgentPromptsGet)
		r.Post("/restart", s.handleAgentRestart)
	})

	authed.Post("/reply", s.handleReply)
	authed.Post("/action-required/tool-confirmation", s.handleToolConfirmation)

	authed.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleSessionsList)
		r.Post("/", s.handleSessionsCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Delete("/", s.handleSessionDelete)
			r.Post("/clear", s.handleSessionClear)
			r.Post("/fork", s.handleSessionFork)
			r.Get("/export", s.handleSessionExport)
			r.Post("/messages", s.handleSessionMessages)
			r.Post("/recipe", s.handleSessionRecipe)
			r.Get("/confirmations", s.handleInbox)
		})
	})

	authed.Route("/acp", func(r chi.Router) {
		r.Post("/", s.handleJSONRPCHTTP)
		r.Get("/", s.handleJSONRPCWebSocket)
	})

	return r
}

// Start binds the listener and begins serving, returning once the bind
// either succeeds or fails (matching the teacher's net.Listen-before-
// backgrounding-Serve ordering so a port conflict is reported
// synchronously rather than silently logged from a goroutine).
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", addr, err)
	}

	s.startTime = time.Now()
	s.httpServer = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.logger.Info("starting http server", "addr", addr)
	return nil
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline for
// in-flight requests (including long-lived SSE/WebSocket connections) to
// finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("transport: shutdown: %w", err)
	}
	return nil
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)
			logger.Debug("http request",
				"method", r.Method, "path", r.URL.Path,
				"status", wrapped.Status(), "duration", time.Since(start))
		})
	}
}
