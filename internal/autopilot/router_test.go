package autopilot

import (
	"testing"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestRouterKeywordMatchWins(t *testing.T) {
	router := NewRouter([]Rule{
		{Name: "code-review", Provider: "anthropic", Priority: 1, Trigger: Trigger{Type: TriggerKeyword, Keywords: []string{"review"}}},
	})

	decision := router.Evaluate(TurnContext{Turn: 1, Source: SourceHuman, LastHumanMessage: "please review this diff"})
	if decision == nil || decision.Rule == nil {
		t.Fatalf("expected a match")
	}
	if decision.Provider != "anthropic" {
		t.Fatalf("expected provider anthropic, got %q", decision.Provider)
	}
}

func TestRouterNoMatchWithoutKeyword(t *testing.T) {
	router := NewRouter([]Rule{
		{Name: "code-review", Provider: "anthropic", Trigger: Trigger{Type: TriggerKeyword, Keywords: []string{"review"}}},
	})
	decision := router.Evaluate(TurnContext{Turn: 1, Source: SourceHuman, LastHumanMessage: "hello there"})
	if decision != nil {
		t.Fatalf("expected no match, got %+v", decision)
	}
}

func TestRouterHighestPriorityWins(t *testing.T) {
	router := NewRouter([]Rule{
		{Name: "low", Provider: "low-provider", Priority: 1, Trigger: Trigger{Type: TriggerKeyword, Keywords: []string{"x"}}},
		{Name: "high", Provider: "high-provider", Priority: 10, Trigger: Trigger{Type: TriggerKeyword, Keywords: []string{"x"}}},
	})
	decision := router.Evaluate(TurnContext{Turn: 1, Source: SourceHuman, LastHumanMessage: "x marks the spot"})
	if decision.Provider != "high-provider" {
		t.Fatalf("expected high-provider to win, got %q", decision.Provider)
	}
}

func TestRouterCooldownBlocksReinvocation(t *testing.T) {
	router := NewRouter([]Rule{
		{Name: "r", Provider: "p", CooldownTurns: 3, Trigger: Trigger{Type: TriggerKeyword, Keywords: []string{"x"}}},
	})
	if d := router.Evaluate(TurnContext{Turn: 1, LastHumanMessage: "x"}); d == nil {
		t.Fatalf("expected first invocation to match")
	}
	if d := router.Evaluate(TurnContext{Turn: 2, LastHumanMessage: "x"}); d != nil {
		t.Fatalf("expected cooldown to block turn 2, got %+v", d)
	}
	if d := router.Evaluate(TurnContext{Turn: 4, LastHumanMessage: "x"}); d == nil {
		t.Fatalf("expected cooldown elapsed by turn 4")
	}
}

func TestRouterMaxInvocationsExhausted(t *testing.T) {
	router := NewRouter([]Rule{
		{Name: "r", Provider: "p", MaxInvocations: 1, Trigger: Trigger{Type: TriggerKeyword, Keywords: []string{"x"}}},
	})
	if d := router.Evaluate(TurnContext{Turn: 1, LastHumanMessage: "x"}); d == nil {
		t.Fatalf("expected first invocation to match")
	}
	if d := router.Evaluate(TurnContext{Turn: 2, LastHumanMessage: "x"}); d != nil {
		t.Fatalf("expected max invocations to block further matches, got %+v", d)
	}
}

func TestRouterSwitchBackAfterOneTurn(t *testing.T) {
	router := NewRouter([]Rule{
		{Name: "r", Provider: "swapped", Trigger: Trigger{Type: TriggerKeyword, Keywords: []string{"x"}}},
	})
	router.SetOriginalProvider("home", "home-model")

	decision := router.Evaluate(TurnContext{Turn: 1, LastHumanMessage: "x"})
	if decision.Provider != "swapped" {
		t.Fatalf("expected swap to fire")
	}

	revert := router.Evaluate(TurnContext{Turn: 2, LastHumanMessage: "no trigger here"})
	if revert == nil || revert.Provider != "home" {
		t.Fatalf("expected revert to original provider, got %+v", revert)
	}

	quiet := router.Evaluate(TurnContext{Turn: 3, LastHumanMessage: "still nothing"})
	if quiet != nil {
		t.Fatalf("expected switch_active to have cleared, got %+v", quiet)
	}
}

func TestRouterOnFailureTrigger(t *testing.T) {
	router := NewRouter([]Rule{
		{Name: "r", Provider: "p", Trigger: Trigger{Type: TriggerOnFailure}},
	})
	failed := convo.Message{
		Role: convo.RoleAssistant,
		Content: []convo.Part{
			{Type: convo.PartToolResponse, ID: "call-1", ResponseErr: &convo.ToolError{Kind: convo.ErrorInternal, Message: "boom"}},
		},
	}
	decision := router.Evaluate(TurnContext{Turn: 1, RecentMessages: []convo.Message{failed}})
	if decision == nil {
		t.Fatalf("expected on_failure trigger to fire")
	}
}

func TestRouterAfterToolUseTrigger(t *testing.T) {
	router := NewRouter([]Rule{
		{Name: "r", Provider: "p", Trigger: Trigger{Type: TriggerAfterToolUse}},
	})
	withTool := convo.Message{
		Role:    convo.RoleAssistant,
		Content: []convo.Part{convo.NewToolRequest("call-1", convo.ToolCall{Name: "read_file"})},
	}
	decision := router.Evaluate(TurnContext{Turn: 1, RecentMessages: []convo.Message{withTool}})
	if decision == nil {
		t.Fatalf("expected after_tool_use trigger to fire")
	}
}

func TestRouterComplexityTrigger(t *testing.T) {
	router := NewRouter([]Rule{
		{Name: "r", Provider: "p", Trigger: Trigger{Type: TriggerComplexity, ComplexityAtLeast: ComplexityHigh}},
	})
	simple := router.Evaluate(TurnContext{Turn: 1, LastHumanMessage: "hi"})
	if simple != nil {
		t.Fatalf("expected a short message not to meet high complexity")
	}

	complex := "```go\nfunc main() {}\n```\nWhy does this fail? What changed? Is this expected behavior given the prior release notes and the migration guide we published last quarter? Please investigate thoroughly."
	decision := router.Evaluate(TurnContext{Turn: 2, LastHumanMessage: complex})
	if decision == nil {
		t.Fatalf("expected a long code-bearing message to meet high complexity")
	}
}
