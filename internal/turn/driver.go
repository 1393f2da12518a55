// Package turn implements the Turn Driver (spec.md §4.7, C8): the reply
// loop that turns one user message into a stream of events terminating
// in end_turn, cancelled, or error. It is grounded directly on the
// teacher's internal/agent.AgenticLoop (loop.go) — the same
// channel-of-events shape, the same per-session mutex discipline, the
// same "state machine driving provider calls and tool dispatch until no
// tool-requests remain" core idea — generalized from the teacher's fixed
// message/tool-result vocabulary to the spec's own event kinds and
// dispatch contract.
package turn

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentcore/internal/autopilot"
	"github.com/haasonsaas/agentcore/internal/cancel"
	"github.com/haasonsaas/agentcore/internal/compaction"
	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/policy"
	"github.com/haasonsaas/agentcore/internal/providers"
	"github.com/haasonsaas/agentcore/internal/sessionmgr"
	"github.com/haasonsaas/agentcore/internal/tokens"
)

// Config tunes the driver, mirroring the teacher's LoopConfig/
// DefaultLoopConfig sanitize-on-construct pattern.
type Config struct {
	// Mode selects how an unresolved tool policy is treated — see
	// internal/policy.Mode.
	Mode policy.Mode

	// EventBufferSize bounds the output channel so a slow consumer
	// applies backpressure rather than the driver blocking forever on an
	// unbuffered send; the teacher's processBufferSize plays the same
	// role for ResponseChunk.
	EventBufferSize int

	// MaxLegs bounds how many provider round-trips a single turn may
	// take (a tool-using conversation could otherwise loop indefinitely
	// against a misbehaving provider); 0 means unbounded.
	MaxLegs int
}

// DefaultConfig returns the driver's default tuning.
func DefaultConfig() Config {
	return Config{Mode: policy.ModeInteractive, EventBufferSize: 64, MaxLegs: 50}
}

func sanitizeConfig(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = defaults.Mode
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = defaults.EventBufferSize
	}
	if cfg.MaxLegs < 0 {
		cfg.MaxLegs = 0
	}
	return cfg
}

// Driver runs turns against sessions owned by a sessionmgr.Manager.
type Driver struct {
	sessions *sessionmgr.Manager
	config   Config

	confirms *confirmWaiters

	mu           sync.Mutex
	routers      map[string]*autopilot.Router
	turnCounters map[string]int
	modes        map[string]policy.Mode
}

// NewDriver builds a Turn Driver over sessions.
func NewDriver(sessions *sessionmgr.Manager, cfg Config) *Driver {
	return &Driver{
		sessions:     sessions,
		config:       sanitizeConfig(cfg),
		confirms:     newConfirmWaiters(),
		routers:      make(map[string]*autopilot.Router),
		turnCounters: make(map[string]int),
		modes:        make(map[string]policy.Mode),
	}
}

// SetSessionMode overrides the interaction mode for one session (IDE
// binding's set_session_mode, spec.md §6), taking priority over the
// driver-wide default until the session is dropped.
func (d *Driver) SetSessionMode(sessionID string, mode policy.Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes[sessionID] = mode
}

// modeFor resolves the interaction mode for sessionID: its per-session
// override if one was set via SetSessionMode, otherwise the driver's
// configured default.
func (d *Driver) modeFor(sessionID string) policy.Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	if mode, ok := d.modes[sessionID]; ok {
		return mode
	}
	return d.config.Mode
}

// AddAutopilotRule installs a provider-swap rule evaluated before every
// turn on sessionID (spec.md §4.6).
func (d *Driver) AddAutopilotRule(sessionID string, rule autopilot.Rule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.router(sessionID).AddRule(rule)
}

func (d *Driver) router(sessionID string) *autopilot.Router {
	r, ok := d.routers[sessionID]
	if !ok {
		r = autopilot.NewRouter(nil)
		d.routers[sessionID] = r
	}
	return r
}

// ResolveConfirmation resolves a pending confirmation request, both
// updating the Permission Manager's record (spec.md §4.4: "always_allow
// persists the tool's policy") and unblocking any turn awaiting it at
// the dispatch step.
func (d *Driver) ResolveConfirmation(sessionID, requestID string, decision convo.ConfirmationDecision) (toolName string, allowed bool, ok bool) {
	toolName, allowed, ok = d.sessions.Policy().Confirm(sessionID, requestID, decision)
	if ok {
		d.confirms.resolve(requestID, decision)
	}
	return toolName, allowed, ok
}

// Input is one turn request (spec.md §4.7: "{session_id, user_message,
// cancel_token, optional session_config}").
type Input struct {
	SessionID   string
	UserMessage convo.Message
	Token       *cancel.Token
	System      string
	Stream      bool
}

// Run executes one turn and returns its event stream. The channel is
// closed after exactly one of EventEnd/EventCancelled/EventError is sent.
// Run enforces "at most one concurrent turn per session" (spec.md §4.7)
// by acquiring the session's turn lock before returning; ErrTurnInFlight
// from sessionmgr is returned synchronously rather than appearing on the
// stream, since the turn never started.
func (d *Driver) Run(ctx context.Context, input Input) (<-chan Event, error) {
	locker := d.sessions.TurnLocker()
	if err := locker.TryLock(input.SessionID); err != nil {
		return nil, err
	}

	events := make(chan Event, d.config.EventBufferSize)
	go func() {
		defer close(events)
		defer locker.Unlock(input.SessionID)
		d.run(ctx, input, events)
	}()
	return events, nil
}

func (d *Driver) run(ctx context.Context, input Input, events chan<- Event) {
	sessionID := input.SessionID
	token := input.Token
	if token == nil {
		token = cancel.New(ctx)
		defer token.Stop()
	}

	// Step 1: append the user message.
	session, err := d.sessions.AppendMessages(sessionID, input.UserMessage)
	if err != nil {
		events <- errorEvent(convo.NewError(convo.ErrorInternal, err.Error()))
		return
	}

	// Step 2: Intent Router picks this turn's provider.
	providerName := session.ProviderName
	model := session.ModelConfig.ModelName
	d.mu.Lock()
	r := d.router(sessionID)
	d.turnCounters[sessionID]++
	turnNum := d.turnCounters[sessionID]
	d.mu.Unlock()

	decision := r.Evaluate(autopilot.TurnContext{
		Turn:             turnNum,
		Source:           autopilot.SourceHuman,
		LastHumanMessage: convo.TextContent(input.UserMessage.Content),
		RecentMessages:   lastN(session.Messages, 6),
	})
	if decision != nil {
		if decision.Provider != "" {
			providerName = decision.Provider
		}
		if decision.Model != "" {
			model = decision.Model
		}
	}

	provider, err := d.sessions.Registry().Build(providerName, map[string]string{"model": model})
	if err != nil {
		events <- errorEvent(convo.NewError(convo.ErrorProviderRequest, err.Error()))
		return
	}

	// Step 3: load the tool list via the Extension Manager.
	mcpSession := d.sessions.MCPSession(sessionID)
	tools, err := mcpSession.ListTools(ctx)
	if err != nil {
		events <- errorEvent(convo.NewError(convo.ErrorInternal, err.Error()))
		return
	}

	acct, err := tokens.NewAccountant(model)
	if err != nil {
		events <- errorEvent(convo.NewError(convo.ErrorInternal, err.Error()))
		return
	}

	for leg := 0; d.config.MaxLegs == 0 || leg < d.config.MaxLegs; leg++ {
		if reason, cancelled := token.Cancelled(); cancelled {
			d.cancelTurn(sessionID, reason, events)
			return
		}

		// Step 4a: build the request, compacting if over budget.
		contextLimit := 0
		if session.ModelConfig.ContextLimit != nil {
			contextLimit = *session.ModelConfig.ContextLimit
		}
		messages := session.Messages
		if contextLimit > 0 {
			result := compaction.Compact(acct, input.System, messages, tools, contextLimit)
			if result.Dropped > 0 || result.SummaryAdded {
				session, err = d.sessions.ReplaceMessages(sessionID, result.Messages)
				if err != nil {
					events <- errorEvent(convo.NewError(convo.ErrorInternal, err.Error()))
					return
				}
				messages = session.Messages
			}
		}

		assistantMsgID := uuid.NewString()
		req := providers.Request{
			SessionID:   sessionID,
			Model:       model,
			System:      input.System,
			Messages:    messages,
			Tools:       tools,
			Temperature: session.ModelConfig.Temperature,
		}
		if session.ModelConfig.MaxTokens != nil {
			req.MaxTokens = *session.ModelConfig.MaxTokens
		}
		if session.ModelConfig.ReasoningEffort != nil {
			req.ReasoningEffort = *session.ModelConfig.ReasoningEffort
		}

		final, usage, cancelled, err := d.runLeg(ctx, token, provider, req, input.Stream, assistantMsgID, events)
		if cancelled {
			d.cancelTurn(sessionID, reasonOf(token), events)
			return
		}
		if err != nil {
			events <- errorEvent(convo.NewError(convo.ErrorProviderRequest, err.Error()))
			return
		}
		if usage != nil {
			events <- Event{Kind: EventUsage, Usage: usage}
		}

		// Step 4e: append the assembled assistant message.
		session, err = d.sessions.AppendMessages(sessionID, *final)
		if err != nil {
			events <- errorEvent(convo.NewError(convo.ErrorInternal, err.Error()))
			return
		}

		requests := convo.ToolRequests(*final)
		if len(requests) == 0 {
			events <- Event{Kind: EventEnd}
			return
		}

		// Step 4g: dispatch every tool-request in order.
		for _, part := range requests {
			if reason, cancelled := token.Cancelled(); cancelled {
				d.cancelTurn(sessionID, reason, events)
				return
			}
			response := d.dispatchOne(token, sessionID, mcpSession, part, events)
			session, err = d.sessions.AppendMessages(sessionID, convo.Message{Role: convo.RoleAssistant, Content: []convo.Part{response}})
			if err != nil {
				events <- errorEvent(convo.NewError(convo.ErrorInternal, err.Error()))
				return
			}
		}
		// Step 4h: loop back to (a) for the next leg.
	}

	events <- errorEvent(convo.NewError(convo.ErrorInternal, "turn exceeded the maximum number of provider round-trips"))
}

func (d *Driver) cancelTurn(sessionID string, reason cancel.Reason, events chan<- Event) {
	session, err := d.sessions.Get(sessionID)
	if err == nil {
		paired := convo.PairSyntheticErrors(session.Messages, convo.ErrorCancelled, "turn cancelled")
		if len(paired) != len(session.Messages) {
			_, _ = d.sessions.ReplaceMessages(sessionID, paired)
		}
	}
	events <- Event{Kind: EventCancelled, CancelReason: string(reason)}
}

func errorEvent(err *convo.Error) Event {
	return Event{Kind: EventError, Err: err}
}

func reasonOf(token *cancel.Token) cancel.Reason {
	reason, _ := token.Cancelled()
	return reason
}

func lastN(messages []convo.Message, n int) []convo.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
