package sessionmgr

import (
	"testing"
	"time"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func textMessage(at time.Time, text string) convo.Message {
	return convo.Message{Role: convo.RoleUser, Created: at, Content: []convo.Part{convo.NewText(text)}}
}

func TestForkSessionWholeTranscriptByDefault(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	source := &convo.Session{
		ID:   "source",
		Name: "original",
		Messages: []convo.Message{
			textMessage(base, "one"),
			textMessage(base.Add(time.Minute), "two"),
		},
	}

	forked := forkSession(source, ForkOptions{})
	if len(forked.Messages) != 2 {
		t.Fatalf("expected whole transcript copied, got %d messages", len(forked.Messages))
	}
	if forked.ID == source.ID {
		t.Fatalf("expected fork to not reuse the source id")
	}
	if source.Messages[0].Content[0].Text != "one" {
		t.Fatalf("expected source transcript to be untouched")
	}
}

func TestForkSessionTruncateAtTimestamp(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cut := base.Add(time.Minute)
	source := &convo.Session{
		ID: "source",
		Messages: []convo.Message{
			textMessage(base, "before"),
			textMessage(cut, "at-cut"),
			textMessage(cut.Add(time.Minute), "after"),
		},
	}

	forked := forkSession(source, ForkOptions{Timestamp: &cut, Truncate: true})
	if len(forked.Messages) != 1 {
		t.Fatalf("expected only messages strictly before the cut, got %d", len(forked.Messages))
	}
	if forked.Messages[0].Content[0].Text != "before" {
		t.Fatalf("expected the kept message to be %q, got %q", "before", forked.Messages[0].Content[0].Text)
	}
	if len(source.Messages) != 3 {
		t.Fatalf("expected source transcript untouched, got %d messages", len(source.Messages))
	}
}

func TestForkSessionCopiesMetadataOnlyWhenRequested(t *testing.T) {
	source := &convo.Session{
		ID:         "source",
		Recipe:     &convo.Recipe{Name: "recipe", Parameters: map[string]string{"k": "v"}},
		Extensions: []convo.ExtensionBinding{{Name: "ext"}},
	}

	bare := forkSession(source, ForkOptions{})
	if bare.Recipe != nil || len(bare.Extensions) != 0 {
		t.Fatalf("expected no metadata copied without Copy=true")
	}

	withMeta := forkSession(source, ForkOptions{Copy: true})
	if withMeta.Recipe == nil || withMeta.Recipe.Name != "recipe" {
		t.Fatalf("expected recipe copied with Copy=true")
	}
	withMeta.Recipe.Parameters["k"] = "mutated"
	if source.Recipe.Parameters["k"] != "v" {
		t.Fatalf("expected recipe parameters to be deep-copied, source was mutated")
	}
	if len(withMeta.Extensions) != 1 {
		t.Fatalf("expected extensions copied with Copy=true")
	}
}
