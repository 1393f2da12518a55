package autopilot

import (
	"sort"
	"strings"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// Decision is the router's output for one turn evaluation: a rule
// matched and the turn should run against a different provider/model/
// role than the session's own.
type Decision struct {
	Rule     *Rule
	Provider string
	Model    string
	Role     string
}

// Router evaluates autopilot rules before each turn (spec.md §4.6),
// grounded on the teacher's multiagent.Router.Route — priority-sorted
// rule matching generalized from agent handoff to provider swap — and
// on failover.go's swap-and-revert shape for switch_active.
type Router struct {
	rules []Rule
	state map[string]*invocationState

	switchActive     bool
	originalProvider string
	originalModel    string
}

// NewRouter builds a Router over the given rules, highest priority first
// at evaluation time (sorting is done at Evaluate time so rules can be
// appended after construction).
func NewRouter(rules []Rule) *Router {
	return &Router{
		rules: rules,
		state: make(map[string]*invocationState),
	}
}

// AddRule appends a rule to the router's set.
func (r *Router) AddRule(rule Rule) {
	r.rules = append(r.rules, rule)
}

// TurnContext is everything Evaluate needs to judge a turn, gathered
// from the transcript the Turn Driver already holds.
type TurnContext struct {
	Turn              int // monotonically increasing per-session turn counter
	Source            MessageSource
	LastHumanMessage  string
	RecentMessages    []convo.Message // most recent last
	ConsecutiveFailures int
	ConsecutiveTools    int
}

// Evaluate finds the highest-priority matching rule for this turn, if
// any (spec.md §4.6: "Multiple matches are resolved by highest
// priority"). It also applies the one-turn switch-back: if no rule
// matches and a prior turn's autopilot invocation is still active, it
// clears the flag and returns a Decision reverting to the original
// provider recorded by SetOriginalProvider; when none was recorded it
// returns nil.
func (r *Router) Evaluate(tc TurnContext) *Decision {
	var matches []*Rule
	for i := range r.rules {
		rule := &r.rules[i]
		if r.ruleMatches(rule, tc) {
			matches = append(matches, rule)
		}
	}

	if len(matches) == 0 {
		if r.switchActive {
			r.switchActive = false
			provider, model := r.originalProvider, r.originalModel
			r.originalProvider, r.originalModel = "", ""
			if provider != "" || model != "" {
				return &Decision{Provider: provider, Model: model}
			}
		}
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority > matches[j].Priority
	})
	winner := matches[0]

	st := r.state[winner.Name]
	if st == nil {
		st = &invocationState{}
		r.state[winner.Name] = st
	}
	st.lastInvokedTurn = tc.Turn
	st.invocationCount++

	if !r.switchActive {
		r.switchActive = true
	}

	return &Decision{Rule: winner, Provider: winner.Provider, Model: winner.Model, Role: winner.Role}
}

// SetOriginalProvider records the session's own provider/model so
// Evaluate can revert to it once switch_active clears.
func (r *Router) SetOriginalProvider(provider, model string) {
	r.originalProvider = provider
	r.originalModel = model
}

func (r *Router) ruleMatches(rule *Rule, tc TurnContext) bool {
	st := r.state[rule.Name]
	if st == nil {
		st = &invocationState{}
	}
	if !st.cooldownElapsed(tc.Turn, rule.CooldownTurns) {
		return false
	}
	if !st.underInvocationCap(rule.MaxInvocations) {
		return false
	}
	if rule.Source != "" && rule.Source != SourceAny && rule.Source != tc.Source {
		return false
	}
	return r.triggerFires(rule.Trigger, tc)
}

func (r *Router) triggerFires(trigger Trigger, tc TurnContext) bool {
	switch trigger.Type {
	case TriggerKeyword:
		return keywordMatches(tc.LastHumanMessage, trigger.Keywords, trigger.MatchAll)
	case TriggerOnFailure:
		return lastNContainFailedTool(tc.RecentMessages, 3)
	case TriggerConsecutiveFailures:
		return tc.ConsecutiveFailures >= trigger.Threshold
	case TriggerAfterToolUse:
		return lastAssistantHasToolRequest(tc.RecentMessages)
	case TriggerConsecutiveTools:
		return tc.ConsecutiveTools >= trigger.Threshold
	case TriggerComplexity:
		return complexityAtLeast(tc.LastHumanMessage, trigger.ComplexityAtLeast)
	default:
		return false
	}
}

func keywordMatches(text string, keywords []string, matchAll bool) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched++
		}
	}
	if matchAll {
		return matched == len(keywords)
	}
	return matched > 0
}

func lastNContainFailedTool(messages []convo.Message, n int) bool {
	start := 0
	if len(messages) > n {
		start = len(messages) - n
	}
	for _, msg := range messages[start:] {
		for _, part := range msg.Content {
			if part.Type == convo.PartToolResponse && part.ResponseErr != nil {
				return true
			}
		}
	}
	return false
}

func lastAssistantHasToolRequest(messages []convo.Message) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != convo.RoleAssistant {
			continue
		}
		return convo.HasToolRequests(messages[i])
	}
	return false
}
