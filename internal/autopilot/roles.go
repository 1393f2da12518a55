package autopilot

// Role is a named system-prompt/parameter bundle a Rule's Role field
// references (spec.md §4.6: "Pre-made roles are merged with user roles;
// user roles override by role key").
type Role struct {
	Name         string
	SystemPrompt string
	Parameters   map[string]string
}

// MergeRoles combines built-in roles with user-supplied overrides,
// keyed by Name; a user role with the same name as a pre-made one
// replaces it entirely rather than merging field-by-field, matching the
// spec's "override by role key" wording.
func MergeRoles(preMade, user []Role) map[string]Role {
	merged := make(map[string]Role, len(preMade)+len(user))
	for _, role := range preMade {
		merged[role.Name] = role
	}
	for _, role := range user {
		merged[role.Name] = role
	}
	return merged
}
