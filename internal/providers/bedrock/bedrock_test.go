package bedrock

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestBedrockImageFormatRecognizesSupportedMimeTypes(t *testing.T) {
	cases := map[string]types.ImageFormat{
		"image/png":  types.ImageFormatPng,
		"IMAGE/JPEG": types.ImageFormatJpeg,
		"image/gif":  types.ImageFormatGif,
		"image/webp": types.ImageFormatWebp,
	}
	for mime, want := range cases {
		got, ok := bedrockImageFormat(mime)
		if !ok || got != want {
			t.Errorf("bedrockImageFormat(%q) = (%v, %v), want (%v, true)", mime, got, ok, want)
		}
	}
	if _, ok := bedrockImageFormat("image/tiff"); ok {
		t.Error("expected unsupported mime type to report false")
	}
}

func TestToBedrockMessagesDropsEmptyMessages(t *testing.T) {
	messages := []convo.Message{
		{Role: convo.RoleUser, Content: nil},
		{Role: convo.RoleUser, Content: []convo.Part{convo.NewText("hello")}},
	}
	out, err := toBedrockMessages(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected empty message to be dropped, got %d messages", len(out))
	}
	if out[0].Role != types.ConversationRoleUser {
		t.Fatalf("expected user role, got %v", out[0].Role)
	}
}

func TestToBedrockMessagesMapsAssistantRole(t *testing.T) {
	messages := []convo.Message{
		{Role: convo.RoleAssistant, Content: []convo.Part{convo.NewText("hi")}},
	}
	out, err := toBedrockMessages(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Role != types.ConversationRoleAssistant {
		t.Fatalf("expected assistant role, got %+v", out)
	}
}

func TestDecodeStreamedToolRejectsMalformedJSON(t *testing.T) {
	part := decodeStreamedTool("call-1", "lookup", "{not json")
	if part.RequestErr == nil || *part.RequestErr != convo.ErrorInvalidToolArguments {
		t.Fatalf("expected invalid tool arguments error, got %+v", part)
	}
}

func TestDecodeStreamedToolAcceptsEmptyInput(t *testing.T) {
	part := decodeStreamedTool("call-1", "lookup", "")
	if part.ToolCall == nil || part.ToolCall.Name != "lookup" {
		t.Fatalf("expected a valid tool call with empty arguments, got %+v", part)
	}
}

func TestToAssistantMessageConvertsTextBlock(t *testing.T) {
	msg := toAssistantMessage([]types.ContentBlock{&types.ContentBlockMemberText{Value: "hello"}})
	if len(msg.Content) != 1 || msg.Content[0].Text != "hello" {
		t.Fatalf("unexpected conversion: %+v", msg)
	}
}
