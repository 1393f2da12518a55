// Package sessionmgr implements the Session Manager (spec.md §4.9, C9): the
// lifecycle of every session (create/get/list/delete/clear/fork/truncate/
// export/import/rename/set_working_dir/update_recipe_values/restart),
// each session's extension bindings and confirmation inbox passthroughs,
// and the per-session turn lock that enforces "a session has exactly one
// active turn at a time" (spec.md §3 Invariants).
//
// A Manager owns Go's runtime map (indexed by session id) the way the
// teacher's sessions.Store owns a SQL table: mutation goes through one
// lock-guarded entry point per session, reads observe a consistent
// transcript prefix, and the in-memory implementation here plays the same
// role the teacher's own MemoryStore plays for tests and local runs.
package sessionmgr

import (
	"context"
	"errors"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// ErrNotFound is returned by Store operations addressing an unknown
// session id.
var ErrNotFound = errors.New("sessionmgr: session not found")

// ListOptions filters and paginates Store.List.
type ListOptions struct {
	Limit  int
	Offset int
}

// Store is the persistence contract a Manager is built on (spec.md §4.9:
// "Conversation Store append-only transcript; fork/truncate/export;
// per-session metadata"). Two implementations exist: MemoryStore for tests
// and local runs, and PostgresStore for a durable backend, mirroring the
// teacher's MemoryStore/CockroachStore split.
type Store interface {
	Create(ctx context.Context, session *convo.Session) error
	Get(ctx context.Context, id string) (*convo.Session, error)
	Update(ctx context.Context, session *convo.Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]*convo.Session, error)
}
