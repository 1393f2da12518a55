package sessionmgr

import (
	"context"
	"testing"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	store := NewMemoryStore()
	session := &convo.Session{Name: "test", WorkingDir: "/tmp"}

	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.ID == "" {
		t.Fatalf("expected session id to be assigned")
	}

	loaded, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if loaded.WorkingDir != session.WorkingDir {
		t.Fatalf("expected working dir %q, got %q", session.WorkingDir, loaded.WorkingDir)
	}

	loaded.Name = "renamed"
	if err := store.Update(context.Background(), loaded); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	updated, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if updated.Name != "renamed" {
		t.Fatalf("expected name to update, got %q", updated.Name)
	}

	if err := store.Delete(context.Background(), session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(context.Background(), session.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreGetReturnsIndependentCopy(t *testing.T) {
	store := NewMemoryStore()
	session := &convo.Session{Name: "original"}
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	loaded, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	loaded.Messages = append(loaded.Messages, convo.Message{Role: convo.RoleUser, Content: []convo.Part{convo.NewText("hello")}})

	reloaded, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(reloaded.Messages) != 0 {
		t.Fatalf("expected stored session to be unaffected by mutating a returned copy")
	}
}

func TestMemoryStoreListPagination(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i < 5; i++ {
		if err := store.Create(context.Background(), &convo.Session{Name: "s"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := store.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 sessions, got %d", len(all))
	}

	page, err := store.List(context.Background(), ListOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}

	page, err = store.List(context.Background(), ListOptions{Offset: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(page))
	}
}
