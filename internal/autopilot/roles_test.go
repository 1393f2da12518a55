package autopilot

import "testing"

func TestMergeRolesUserOverridesPreMade(t *testing.T) {
	preMade := []Role{{Name: "reviewer", SystemPrompt: "built-in reviewer"}}
	user := []Role{{Name: "reviewer", SystemPrompt: "custom reviewer"}}

	merged := MergeRoles(preMade, user)
	if merged["reviewer"].SystemPrompt != "custom reviewer" {
		t.Fatalf("expected user role to override pre-made role, got %q", merged["reviewer"].SystemPrompt)
	}
}

func TestMergeRolesKeepsNonOverlapping(t *testing.T) {
	preMade := []Role{{Name: "reviewer"}, {Name: "planner"}}
	user := []Role{{Name: "reviewer"}}

	merged := MergeRoles(preMade, user)
	if len(merged) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(merged))
	}
	if _, ok := merged["planner"]; !ok {
		t.Fatalf("expected non-overlapping pre-made role to survive")
	}
}
