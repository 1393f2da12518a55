// Package autopilot implements the Intent Router (spec.md §4.6, C7): a
// per-turn evaluation of provider-swap rules against the current
// conversation, grounded on the teacher's internal/multiagent sub-agent
// router (trigger matching, priority resolution) generalized from
// "which agent handles this message" to "which provider handles this
// turn", plus the teacher's internal/agent/failover.go for the
// swap-and-revert shape.
package autopilot

// TriggerType is one of the positive trigger kinds spec.md §4.6 names.
type TriggerType string

const (
	TriggerKeyword              TriggerType = "keyword"
	TriggerOnFailure            TriggerType = "on_failure"
	TriggerConsecutiveFailures  TriggerType = "consecutive_failures"
	TriggerAfterToolUse         TriggerType = "after_tool_use"
	TriggerConsecutiveTools     TriggerType = "consecutive_tools"
	TriggerComplexity           TriggerType = "complexity"
)

// MessageSource restricts a rule to the kind of message that triggered
// this turn.
type MessageSource string

const (
	SourceHuman   MessageSource = "human"
	SourceMachine MessageSource = "machine"
	SourceAny     MessageSource = "any"
)

// ComplexityLevel is the heuristic bucket a message's complexity score
// falls into.
type ComplexityLevel string

const (
	ComplexityLow    ComplexityLevel = "low"
	ComplexityMedium ComplexityLevel = "medium"
	ComplexityHigh   ComplexityLevel = "high"
)

// Trigger is the positive condition a Rule fires on, grounded on the
// teacher's RoutingTrigger (internal/multiagent/types.go): one struct
// carrying every trigger kind's parameters, switched on Type.
type Trigger struct {
	Type TriggerType

	// Keyword trigger.
	Keywords []string
	MatchAll bool // false = match any keyword, true = match all

	// consecutive_failures / consecutive_tools triggers.
	Threshold int

	// complexity trigger.
	ComplexityAtLeast ComplexityLevel
}

// Rule is one provider-swap rule the router evaluates each turn
// (spec.md §4.6: "a list of ModelConfig rules (provider, model, role,
// trigger)").
type Rule struct {
	Name          string
	Provider      string
	Model         string
	Role          string
	Trigger       Trigger
	Priority      int
	CooldownTurns int
	MaxInvocations int // 0 = unlimited
	Source        MessageSource
}

// invocationState tracks a rule's cooldown/invocation bookkeeping,
// keyed by rule name, grounded on the teacher's ProviderState
// (internal/agent/failover.go) adapted from failure-circuit tracking to
// invocation-count/cooldown tracking.
type invocationState struct {
	lastInvokedTurn int
	invocationCount int
}

func (s *invocationState) cooldownElapsed(turn, cooldown int) bool {
	if s.lastInvokedTurn == 0 {
		return true
	}
	return turn-s.lastInvokedTurn >= cooldown
}

func (s *invocationState) underInvocationCap(max int) bool {
	if max <= 0 {
		return true
	}
	return s.invocationCount < max
}
